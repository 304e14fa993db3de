package navigation

import (
	"fmt"

	"voice-chat-go/internal/domain/eventbus"
)

// TokenSource exposes the current bearer token; "" means unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Guard inspects a resolved match before navigation completes. It returns the
// path to redirect to, or "" to let navigation proceed.
type Guard func(to Match) string

// AuthGuard redirects protected routes to loginPath while tokens has no token.
func AuthGuard(tokens TokenSource, loginPath string) Guard {
	if loginPath == "" {
		loginPath = LoginPath
	}
	return func(to Match) string {
		if !to.RequiresAuth() {
			return ""
		}
		if tokens != nil && tokens.Token() != "" {
			return ""
		}
		return loginPath
	}
}

// Destination is where a navigation ended up.
type Destination struct {
	Match
	// Requested is the path navigation started from.
	Requested string
	// GuardRedirected is set when a guard diverted the navigation.
	GuardRedirected bool
}

// Navigator resolves paths and applies guards in registration order.
type Navigator struct {
	table  *Table
	guards []Guard
	bus    eventbus.Bus
}

// NewNavigator 创建导航器
func NewNavigator(table *Table, bus eventbus.Bus, guards ...Guard) *Navigator {
	return &Navigator{table: table, guards: guards, bus: bus}
}

// Table returns the underlying route table.
func (n *Navigator) Table() *Table {
	return n.table
}

// Navigate resolves path and runs the guards. A guard redirect is resolved
// and guarded again; a guard that keeps redirecting is an error.
func (n *Navigator) Navigate(path string) (Destination, error) {
	dest := Destination{Requested: normalize(path)}
	current := dest.Requested
	for hop := 0; hop <= maxRedirects; hop++ {
		m := n.table.Resolve(current)
		redirect := n.check(m)
		if redirect == "" {
			dest.Match = m
			return dest, nil
		}
		redirect = normalize(redirect)
		if redirect == m.Path {
			return Destination{}, fmt.Errorf("guard redirected %q to itself", redirect)
		}
		eventbus.Publish(n.bus, eventbus.EventNavigationRedirect, eventbus.NavigationEventData{From: m.Path, To: redirect})
		dest.GuardRedirected = true
		current = redirect
	}
	return Destination{}, fmt.Errorf("too many guard redirects navigating to %q", dest.Requested)
}

func (n *Navigator) check(m Match) string {
	for _, g := range n.guards {
		if to := g(m); to != "" {
			return to
		}
	}
	return ""
}
