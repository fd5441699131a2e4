// Package catalog holds the declarative descriptors that drive every
// resource page: table columns, modal form fields, auxiliary lookups and
// the capabilities the backend supports for each resource.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Synthetic column keys that never hold record data.
const (
	KeyActions = "actions"
	KeyStatus  = "status"
)

// Actions a permission can name, as in "<resource>.<action>".
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionExport = "export"
	ActionImport = "import"
	ActionPrint  = "print"
	ActionStatus = "status"
)

// Column is one entry of a ColumnConfig.
type Column struct {
	Key   string `validate:"required"`
	Label string `validate:"required"`
}

// Field is one entry of a FieldConfig.
type Field struct {
	Name     string `validate:"required"`
	Label    string `validate:"required"`
	Widget   string `validate:"required,oneof=text textarea email password number date select multiselect"`
	Required bool
	// Options names the lookup collection that feeds select widgets.
	Options string `validate:"required_if=Widget select,required_if=Widget multiselect"`
	// Relation fields read "<Name>_id" from the subject record.
	Relation bool
	// Multi relations read the ids of the nested "<Name>" array.
	Multi bool
}

// Definition describes one backend resource.
type Definition struct {
	Name    string   `validate:"required,lowercase,alpha"`
	Plural  string   `validate:"required,lowercase,alpha"`
	Title   string   `validate:"required"`
	Columns []Column `validate:"required,min=1,dive"`
	Fields  []Field  `validate:"required,min=1,dive"`

	// AssignFields are shown in the "assign" modal mode; empty disables it.
	AssignFields []Field `validate:"omitempty,dive"`

	// Lookups are the auxiliary collection keys returned with the list.
	Lookups []string

	Toggle bool // supports PUT /{plural}/{id}/status
	Bulk   bool // supports bulk-activate / bulk-deactivate
	Import bool // supports import + download-template

	// AssignPath is the backend path for assign submissions, with "{id}".
	AssignPath string `validate:"required_with=AssignFields"`
}

// IDsKey is the request body key used by the bulk endpoints.
func (d Definition) IDsKey() string { return d.Name + "_ids" }

// CanAssign reports whether the resource has an assign mode.
func (d Definition) CanAssign() bool { return len(d.AssignFields) > 0 }

// Permission returns the capability name for an action on this resource.
func (d Definition) Permission(action string) string { return d.Name + "." + action }

// ExportColumns returns the columns that carry exportable record data,
// i.e. the ColumnConfig without the synthetic actions/status keys.
func (d Definition) ExportColumns() []Column {
	out := make([]Column, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c.Key == KeyActions || c.Key == KeyStatus {
			continue
		}
		out = append(out, c)
	}
	return out
}

// HasColumn reports whether key appears in the ColumnConfig.
func (d Definition) HasColumn(key string) bool {
	for _, c := range d.Columns {
		if c.Key == key {
			return true
		}
	}
	return false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a definition's struct tags and a few cross-field rules.
func Validate(d Definition) error {
	if err := validatorInstance().Struct(d); err != nil {
		return fmt.Errorf("resource %q: %w", d.Name, err)
	}
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if seen[c.Key] {
			return fmt.Errorf("resource %q: duplicate column %q", d.Name, c.Key)
		}
		seen[c.Key] = true
	}
	lookups := make(map[string]bool, len(d.Lookups))
	for _, l := range d.Lookups {
		lookups[l] = true
	}
	for _, f := range append(append([]Field{}, d.Fields...), d.AssignFields...) {
		if f.Options != "" && !lookups[f.Options] {
			return fmt.Errorf("resource %q: field %q uses unknown lookup %q", d.Name, f.Name, f.Options)
		}
	}
	return nil
}

// Catalog is an ordered, read-only set of resource definitions.
type Catalog struct {
	defs  map[string]Definition
	order []string
}

// New validates and indexes the given definitions.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if err := Validate(d); err != nil {
			return nil, err
		}
		if _, dup := c.defs[d.Name]; dup {
			return nil, fmt.Errorf("resource %q defined twice", d.Name)
		}
		c.defs[d.Name] = d
		c.order = append(c.order, d.Name)
	}
	return c, nil
}

// Get returns the definition with the given name. The lookup accepts the
// singular or the plural form so URLs may use either.
func (c *Catalog) Get(name string) (Definition, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if d, ok := c.defs[name]; ok {
		return d, true
	}
	for _, d := range c.defs {
		if d.Plural == name {
			return d, true
		}
	}
	return Definition{}, false
}

// All returns the definitions in registration order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.defs[n])
	}
	return out
}

// Names returns the sorted resource names.
func (c *Catalog) Names() []string {
	out := append([]string(nil), c.order...)
	sort.Strings(out)
	return out
}
