package catalog

// Shared column and field fragments.
var (
	colID        = Column{Key: "id", Label: "ID"}
	colName      = Column{Key: "name", Label: "Name"}
	colStatus    = Column{Key: KeyStatus, Label: "Status"}
	colCreatedAt = Column{Key: "created_at", Label: "Created At"}
	colActions   = Column{Key: KeyActions, Label: "Actions"}

	fieldName        = Field{Name: "name", Label: "Name", Widget: "text", Required: true}
	fieldDescription = Field{Name: "description", Label: "Description", Widget: "textarea"}
)

func relationField(name, label, lookup string) Field {
	return Field{Name: name, Label: label, Widget: "select", Options: lookup, Relation: true, Required: true}
}

// Defaults returns the definitions for every resource the dashboard manages.
func Defaults() []Definition {
	return []Definition{
		{
			Name: "category", Plural: "categories", Title: "Categories",
			Columns: []Column{colID, colName, {Key: "description", Label: "Description"}, colStatus, colCreatedAt, colActions},
			Fields:  []Field{fieldName, fieldDescription},
			Toggle:  true, Bulk: true, Import: true,
		},
		{
			Name: "center", Plural: "centers", Title: "Centers",
			Columns: []Column{colID, colName, {Key: "code", Label: "Code"}, {Key: "sector", Label: "Sector"}, {Key: "tbc", Label: "TBC"}, colStatus, colCreatedAt, colActions},
			Fields: []Field{
				fieldName,
				{Name: "code", Label: "Code", Widget: "text", Required: true},
				relationField("sector", "Sector", "sectors"),
				relationField("tbc", "Team Based Code", "tbcs"),
			},
			Lookups: []string{"sectors", "tbcs"},
			Toggle:  true, Bulk: true, Import: true,
		},
		{
			Name: "department", Plural: "departments", Title: "Departments",
			Columns: []Column{colID, colName, {Key: "center", Label: "Center"}, colStatus, colCreatedAt, colActions},
			Fields:  []Field{fieldName, relationField("center", "Center", "centers"), fieldDescription},
			Lookups: []string{"centers"},
			Toggle:  true, Bulk: true, Import: true,
		},
		{
			Name: "rank", Plural: "ranks", Title: "Ranks",
			Columns: []Column{colID, colName, {Key: "level", Label: "Level"}, colStatus, colCreatedAt, colActions},
			Fields:  []Field{fieldName, {Name: "level", Label: "Level", Widget: "number", Required: true}},
			Toggle:  true, Bulk: true, Import: true,
		},
		{
			Name: "sector", Plural: "sectors", Title: "Sectors",
			Columns: []Column{colID, colName, {Key: "zone", Label: "Zone"}, colStatus, colCreatedAt, colActions},
			Fields:  []Field{fieldName, relationField("zone", "Zone", "zones")},
			Lookups: []string{"zones"},
			Toggle:  true, Bulk: true, Import: true,
		},
		{
			Name: "role", Plural: "roles", Title: "Roles",
			Columns: []Column{colID, colName, {Key: "permissions", Label: "Permissions"}, colCreatedAt, colActions},
			Fields: []Field{
				fieldName,
				{Name: "permissions", Label: "Permissions", Widget: "multiselect", Options: "permissions", Multi: true},
			},
			Lookups: []string{"permissions"},
		},
		{
			Name: "permission", Plural: "permissions", Title: "Permissions",
			Columns: []Column{colID, colName, {Key: "guard_name", Label: "Guard"}, colCreatedAt, colActions},
			Fields:  []Field{fieldName, {Name: "guard_name", Label: "Guard", Widget: "text"}},
		},
		{
			Name: "tbc", Plural: "tbcs", Title: "Team Based Codes",
			Columns: []Column{colID, {Key: "code", Label: "Code"}, colName, {Key: "description", Label: "Description"}, colStatus, colCreatedAt, colActions},
			Fields:  []Field{{Name: "code", Label: "Code", Widget: "text", Required: true}, fieldName, fieldDescription},
			Toggle:  true, Bulk: true, Import: true,
		},
		{
			Name: "user", Plural: "users", Title: "Users",
			Columns: []Column{colID, colName, {Key: "email", Label: "Email"}, {Key: "roles", Label: "Roles"}, {Key: "center", Label: "Center"}, {Key: "tbc", Label: "TBC"}, colStatus, colCreatedAt, colActions},
			Fields: []Field{
				fieldName,
				{Name: "email", Label: "Email", Widget: "email", Required: true},
				{Name: "password", Label: "Password", Widget: "password"},
				relationField("center", "Center", "centers"),
				relationField("tbc", "Team Based Code", "tbcs"),
			},
			AssignFields: []Field{
				{Name: "roles", Label: "Roles", Widget: "multiselect", Options: "roles", Multi: true, Required: true},
			},
			AssignPath: "users/{id}/assign-roles",
			Lookups:    []string{"roles", "centers", "tbcs"},
			Toggle:     true, Bulk: true, Import: true,
		},
		{
			Name: "section", Plural: "sections", Title: "Sections",
			Columns: []Column{colID, colName, {Key: "department", Label: "Department"}, colStatus, colCreatedAt, colActions},
			Fields:  []Field{fieldName, relationField("department", "Department", "departments")},
			Lookups: []string{"departments"},
			Toggle:  true, Bulk: true, Import: true,
		},
		{
			Name: "zone", Plural: "zones", Title: "Zones",
			Columns: []Column{colID, colName, {Key: "code", Label: "Code"}, colStatus, colCreatedAt, colActions},
			Fields:  []Field{fieldName, {Name: "code", Label: "Code", Widget: "text"}},
			Toggle:  true, Bulk: true, Import: true,
		},
		{
			Name: "elt", Plural: "elts", Title: "ELTs",
			Columns: []Column{colID, colName, {Key: "center", Label: "Center"}, {Key: "members", Label: "Members"}, colStatus, colCreatedAt, colActions},
			Fields: []Field{
				fieldName,
				relationField("center", "Center", "centers"),
				{Name: "members", Label: "Members", Widget: "multiselect", Options: "users", Multi: true},
			},
			Lookups: []string{"centers", "users"},
			Toggle:  true, Bulk: true,
		},
	}
}

// Default returns a catalog of all built-in resources. It panics if a
// built-in definition is invalid, which is a programming error.
func Default() *Catalog {
	c, err := New(Defaults()...)
	if err != nil {
		panic(err)
	}
	return c
}
