// Package navigation builds the top-level menu shown in every view.
package navigation

import (
	"strings"
	"sync"
)

const (
	RouteHome      = "/"
	RouteHotels    = "/hotels"
	RouteDashboard = "/dashboard"
	RouteLogin     = "/login"
	RouteRegister  = "/register"
	RouteLogout    = "/logout"
)

// Link is a primary navigation target.
type Link struct {
	Label       string
	Path        string
	MatchPrefix bool
}

// Matches reports whether route should highlight the link.
func (l Link) Matches(route string) bool {
	route = cleanRoute(route)
	if route == l.Path {
		return true
	}
	if !l.MatchPrefix || l.Path == RouteHome {
		return false
	}
	return strings.HasPrefix(route, strings.TrimRight(l.Path, "/")+"/")
}

// Item is a rendered link.
type Item struct {
	Label  string
	Path   string
	Active bool
	Action bool // performs an action instead of opening a view
}

// Menu is what the bar shows for one viewer at one route.
type Menu struct {
	Primary  []Item
	Account  []Item
	MenuOpen bool
}

// Bar holds the primary links. Links can be replaced at runtime.
type Bar struct {
	mu    sync.RWMutex
	links []Link
}

func NewBar(links []Link) *Bar {
	b := &Bar{}
	b.SetLinks(links)
	return b
}

func (b *Bar) SetLinks(links []Link) {
	cp := make([]Link, len(links))
	copy(cp, links)
	b.mu.Lock()
	b.links = cp
	b.mu.Unlock()
}

func (b *Bar) Links() []Link {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cp := make([]Link, len(b.links))
	copy(cp, b.links)
	return cp
}

// Render builds the menu for the given route and authentication state.
func (b *Bar) Render(st State, authenticated bool) Menu {
	links := b.Links()
	menu := Menu{
		Primary:  make([]Item, 0, len(links)),
		MenuOpen: st.MenuOpen,
	}
	for _, l := range links {
		menu.Primary = append(menu.Primary, Item{Label: l.Label, Path: l.Path, Active: l.Matches(st.Route)})
	}

	route := cleanRoute(st.Route)
	if authenticated {
		menu.Account = []Item{
			{Label: "Dashboard", Path: RouteDashboard, Active: route == RouteDashboard},
			{Label: "Logout", Path: RouteLogout, Action: true},
		}
	} else {
		menu.Account = []Item{
			{Label: "Login", Path: RouteLogin, Active: route == RouteLogin},
			{Label: "Sign Up", Path: RouteRegister, Active: route == RouteRegister},
		}
	}
	return menu
}

// State is the per-viewer part of the bar: the current route and the
// mobile menu toggle.
type State struct {
	Route    string
	MenuOpen bool
}

// Navigate moves to route. Changing route closes the mobile menu.
func (s *State) Navigate(route string) {
	route = cleanRoute(route)
	if route != s.Route {
		s.MenuOpen = false
	}
	s.Route = route
}

func (s *State) ToggleMenu() {
	s.MenuOpen = !s.MenuOpen
}

func cleanRoute(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return RouteHome
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return route
}
