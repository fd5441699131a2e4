package navigation

import (
	"strings"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
)

// Item is one entry of the resource menu.
type Item struct {
	Name   string
	Title  string
	Href   string
	Active bool
}

// Menu builds the resource navigation from a catalog.
type Menu struct {
	cat    *catalog.Catalog
	prefix string
}

// NewMenu returns a menu whose links are prefix + "/" + plural.
func NewMenu(cat *catalog.Catalog, prefix string) *Menu {
	return &Menu{cat: cat, prefix: strings.TrimRight(prefix, "/")}
}

// Href returns the list URL for a resource.
func (m *Menu) Href(d catalog.Definition) string {
	return m.prefix + "/" + d.Plural
}

// For returns the resources u may view, in catalog order. The item whose
// list URL prefixes current is marked active.
func (m *Menu) For(u *auth.SessionUser, current string) []Item {
	var out []Item
	for _, d := range m.cat.All() {
		if !u.Can(d.Permission(catalog.ActionView)) {
			continue
		}
		href := m.Href(d)
		out = append(out, Item{
			Name:   d.Name,
			Title:  d.Title,
			Href:   href,
			Active: current == href || strings.HasPrefix(current, href+"/"),
		})
	}
	return out
}
