// Package nav holds the sidebar route table.
package nav

import "strings"

// LoginPath is where a logout redirects
const LoginPath = "/login"

// Route is a sidebar entry
type Route struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Active bool   `json:"active"`
}

var routes = []Route{
	{Label: "Store", Path: "/store"},
	{Label: "Inventory", Path: "/inventory"},
	{Label: "Sales", Path: "/sales"},
	{Label: "Discounts", Path: "/discounts"},
	{Label: "Logs", Path: "/logs"},
	{Label: "Settings", Path: "/settings"},
}

// Routes returns a copy of the route table
func Routes() []Route {
	return append([]Route(nil), routes...)
}

// Active returns the route table with the entry for path marked. A path
// under a route, such as /inventory/42, marks that route.
func Active(path string) []Route {
	path = strings.TrimSuffix(path, "/")
	out := Routes()
	for i := range out {
		if path == out[i].Path || strings.HasPrefix(path, out[i].Path+"/") {
			out[i].Active = true
		}
	}
	return out
}
