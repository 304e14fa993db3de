package navigation

import (
	"fmt"
)

const (
	// NotFoundView is the view rendered for unmatched paths.
	NotFoundView = "NotFound"
	// LoginPath is where the auth guard sends unauthenticated users.
	LoginPath = "/login"

	maxRedirects = 10
)

// Match is the result of resolving a path against a Table.
type Match struct {
	// Path is the concrete path that was matched, after redirects.
	Path string
	// FullPath is the pattern of the matched route, e.g. /chat/:id.
	FullPath string
	Route    Route
	// Parents lists enclosing layout routes, outermost first.
	Parents []Route
	Params  map[string]string
	// RedirectedFrom is the requested path when a route redirect was followed.
	RedirectedFrom string
	NotFound       bool
}

// RequiresAuth reports whether the matched route is protected. Only the
// matched route's own meta is consulted.
func (m Match) RequiresAuth() bool {
	return m.Route.Meta.RequiresAuth
}

// Table resolves paths to routes. It is immutable after construction.
type Table struct {
	static   []entry
	dynamic  []entry
	notFound *entry
	entries  []entry
}

// NewTable flattens routes and checks that every redirect terminates.
func NewTable(routes []Route) (*Table, error) {
	entries, err := flatten(routes, "/", nil, nil)
	if err != nil {
		return nil, err
	}

	t := &Table{entries: entries}
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		e := entries[i]
		switch {
		case e.catchAll:
			if t.notFound == nil {
				t.notFound = &entries[i]
			}
			continue
		case seen[e.fullPath]:
			return nil, fmt.Errorf("duplicate route %q", e.fullPath)
		case e.dynamic:
			t.dynamic = append(t.dynamic, e)
		default:
			t.static = append(t.static, e)
		}
		seen[e.fullPath] = true
	}
	if t.notFound == nil {
		t.notFound = &entry{fullPath: CatchAll, catchAll: true, route: Route{Path: CatchAll, View: NotFoundView}}
	}

	for _, e := range entries {
		if e.route.Redirect == "" {
			continue
		}
		if _, err := t.resolve(e.route.Redirect); err != nil {
			return nil, fmt.Errorf("route %q: %w", e.fullPath, err)
		}
	}
	return t, nil
}

// Resolve returns the single match for path. Static routes win over
// parameterized ones, table order breaks ties within a class, and unmatched
// paths land on the catch-all route.
func (t *Table) Resolve(path string) Match {
	m, err := t.resolve(path)
	if err != nil {
		// NewTable rejects redirect cycles, so this only guards against
		// tables built by hand.
		return t.notFoundMatch(normalize(path))
	}
	return m
}

func (t *Table) resolve(path string) (Match, error) {
	requested := normalize(path)
	current := requested
	for hop := 0; hop <= maxRedirects; hop++ {
		m := t.lookup(current)
		if m.Route.Redirect == "" || m.NotFound {
			if current != requested {
				m.RedirectedFrom = requested
			}
			return m, nil
		}
		current = normalize(m.Route.Redirect)
	}
	return Match{}, fmt.Errorf("too many redirects resolving %q", requested)
}

func (t *Table) lookup(path string) Match {
	segments := splitPath(path)
	for _, e := range t.static {
		if _, ok := e.match(segments); ok {
			return newMatch(path, e, nil)
		}
	}
	for _, e := range t.dynamic {
		if params, ok := e.match(segments); ok {
			return newMatch(path, e, params)
		}
	}
	return t.notFoundMatch(path)
}

func (t *Table) notFoundMatch(path string) Match {
	m := newMatch(path, *t.notFound, nil)
	m.NotFound = true
	return m
}

func newMatch(path string, e entry, params map[string]string) Match {
	return Match{
		Path:     path,
		FullPath: e.fullPath,
		Route:    e.route,
		Parents:  e.parents,
		Params:   params,
	}
}

// RouteInfo is a flattened, printable view of a leaf route.
type RouteInfo struct {
	FullPath     string   `json:"path"`
	View         string   `json:"view,omitempty"`
	Redirect     string   `json:"redirect,omitempty"`
	RequiresAuth bool     `json:"requiresAuth"`
	Layouts      []string `json:"layouts,omitempty"`
}

// Routes lists leaf routes in table order.
func (t *Table) Routes() []RouteInfo {
	out := make([]RouteInfo, 0, len(t.entries))
	for _, e := range t.entries {
		info := RouteInfo{
			FullPath:     e.fullPath,
			View:         e.route.View,
			Redirect:     e.route.Redirect,
			RequiresAuth: e.route.Meta.RequiresAuth,
		}
		for _, p := range e.parents {
			info.Layouts = append(info.Layouts, p.View)
		}
		out = append(out, info)
	}
	return out
}
