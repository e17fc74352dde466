// Package ui is the employee web interface: page controllers, the
// templates they render and the HTTP server that drives them.
package ui

import "net/http"

// Paths of the employee pages
const (
	PathLogin   = "/"
	PathBills   = "/employee/bills"
	PathNewBill = "/employee/bill/new"
)

// Navigation icons of the vertical layout
const (
	IconWindow = "icon-window"
	IconMail   = "icon-mail"
)

// Route maps a path to the page it renders and the icon it highlights
type Route struct {
	Path   string
	Page   string
	Title  string
	Active string
}

var routes = []Route{
	{Path: PathLogin, Page: "login", Title: "Billed"},
	{Path: PathBills, Page: "bills", Title: "Mes notes de frais", Active: IconWindow},
	{Path: PathNewBill, Page: "newbill", Title: "Envoyer une note de frais", Active: IconMail},
}

// Lookup finds the route of path
func Lookup(path string) (Route, bool) {
	for _, r := range routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Navigator moves the browser to another page
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// redirect navigates with a 303 so that a POST is followed by a GET
func redirect(w http.ResponseWriter, r *http.Request) Navigator {
	return NavigatorFunc(func(path string) {
		http.Redirect(w, r, path, http.StatusSeeOther)
	})
}
