package navigation

import (
	"fmt"
	"strings"
)

// CatchAll is the path of the route used when nothing else matches.
const CatchAll = "*"

// Meta 路由元信息
type Meta struct {
	RequiresAuth bool `json:"requiresAuth" yaml:"requires_auth"`
}

// Route maps a path to a view. Child paths are relative to the parent unless
// they start with "/". A route with children is a layout and is never the
// result of a match itself.
type Route struct {
	Path     string  `json:"path" yaml:"path"`
	View     string  `json:"view,omitempty" yaml:"view,omitempty"`
	Redirect string  `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Meta     Meta    `json:"meta" yaml:"meta"`
	Children []Route `json:"children,omitempty" yaml:"children,omitempty"`
}

// entry is a flattened leaf route.
type entry struct {
	fullPath string
	segments []string
	route    Route
	parents  []Route
	dynamic  bool
	catchAll bool
}

func joinPath(parent, child string) string {
	if child == CatchAll {
		return CatchAll
	}
	if strings.HasPrefix(child, "/") {
		return normalize(child)
	}
	if child == "" {
		return normalize(parent)
	}
	return normalize(strings.TrimSuffix(parent, "/") + "/" + child)
}

// normalize drops query and fragment, ensures a leading slash and removes a
// trailing one.
func normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func flatten(routes []Route, parentPath string, parents []Route, out []entry) ([]entry, error) {
	for _, r := range routes {
		full := joinPath(parentPath, r.Path)
		if len(r.Children) > 0 {
			if full == CatchAll {
				return nil, fmt.Errorf("catch-all route cannot have children")
			}
			chain := append(append([]Route(nil), parents...), r)
			var err error
			out, err = flatten(r.Children, full, chain, out)
			if err != nil {
				return nil, err
			}
			continue
		}
		if r.View == "" && r.Redirect == "" {
			return nil, fmt.Errorf("route %q has neither view nor redirect", full)
		}

		e := entry{
			fullPath: full,
			route:    r,
			parents:  append([]Route(nil), parents...),
			catchAll: full == CatchAll,
		}
		if !e.catchAll {
			e.segments = splitPath(full)
			for _, seg := range e.segments {
				if strings.HasPrefix(seg, ":") {
					if len(seg) == 1 {
						return nil, fmt.Errorf("route %q has an unnamed parameter", full)
					}
					e.dynamic = true
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// match reports whether the entry matches the given path segments and
// returns the captured parameters.
func (e entry) match(segments []string) (map[string]string, bool) {
	if len(segments) != len(e.segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range e.segments {
		if strings.HasPrefix(seg, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			params[seg[1:]] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}
