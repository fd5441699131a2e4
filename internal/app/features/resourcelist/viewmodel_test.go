package resourcelist

import (
	"html/template"
	"testing"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categoryDef(t *testing.T) catalog.Definition {
	t.Helper()
	def, ok := catalog.Default().Get("category")
	require.True(t, ok)
	return def
}

func TestSortable(t *testing.T) {
	ok := sortable(categoryDef(t))
	assert.True(t, ok("name"))
	assert.True(t, ok("status"))
	assert.True(t, ok(listctl.DefaultSortBy))
	assert.False(t, ok(catalog.KeyActions))
	assert.False(t, ok("password"))
}

func TestFullParams(t *testing.T) {
	q := listctl.DefaultQuery().WithSearch("north").WithPage(3)
	v := fullParams(q)
	assert.Equal(t, "north", v.Get("search"))
	assert.Equal(t, listctl.DefaultSortBy, v.Get("sort_by"))
	assert.False(t, v.Has("page"))
	assert.False(t, v.Has("per_page"))
}

func TestColumns_MarkCurrentSort(t *testing.T) {
	def := categoryDef(t)
	q := listctl.Query{SortBy: "name", SortDir: listctl.Asc}

	cols := columns(def, q)
	require.Len(t, cols, len(def.Columns))
	for _, c := range cols {
		switch c.Key {
		case "name":
			assert.True(t, c.SortAsc)
			assert.False(t, c.SortDesc)
		case catalog.KeyActions:
			assert.True(t, c.Actions)
			assert.False(t, c.Sortable)
		case catalog.KeyStatus:
			assert.True(t, c.Status)
			assert.False(t, c.SortAsc || c.SortDesc)
		default:
			assert.False(t, c.SortAsc || c.SortDesc, c.Key)
		}
	}
}

func TestRows_AlignCellsWithColumns(t *testing.T) {
	def := categoryDef(t)
	snap := listctl.Snapshot{
		Page: models.PageEnvelope{Data: []models.Record{
			{"id": int64(1), "name": "Alpha", "status": "Active"},
			{"name": "no id"},
			{"id": int64(2), "name": "Beta", "status": "inactive"},
		}},
		Selected: []int64{2},
	}

	got := rows(def, snap)
	require.Len(t, got, 2, "rows without an id are skipped")
	assert.True(t, got[0].Active)
	assert.False(t, got[0].Selected)
	assert.True(t, got[1].Selected)
	assert.False(t, got[1].Active)
	for _, r := range got {
		assert.Len(t, r.Cells, len(def.Columns))
	}
	assert.Equal(t, "Alpha", got[0].Cells[1].Text)
}

func TestCapabilities(t *testing.T) {
	def := categoryDef(t)

	viewer := &auth.SessionUser{Permissions: []string{"category.view"}}
	assert.Equal(t, capsVM{}, capabilities(def, viewer))

	editor := &auth.SessionUser{Permissions: []string{"category.edit", "category.status", "category.export"}}
	caps := capabilities(def, editor)
	assert.True(t, caps.Edit)
	assert.True(t, caps.Status)
	assert.True(t, caps.Bulk)
	assert.True(t, caps.Export)
	assert.False(t, caps.Delete)
	assert.False(t, caps.Assign, "categories have no assign form")

	perms, ok := catalog.Default().Get("permission")
	require.True(t, ok)
	admin := &auth.SessionUser{Permissions: []string{auth.Wildcard}}
	caps = capabilities(perms, admin)
	assert.False(t, caps.Status, "permissions cannot be toggled")
	assert.False(t, caps.Import)
	assert.True(t, caps.Print)
}

func TestTableWidthCountsCheckboxColumn(t *testing.T) {
	def := categoryDef(t)
	d := listData{Columns: columns(def, listctl.DefaultQuery())}
	assert.Equal(t, len(def.Columns)+1, d.TableWidth())
}

func TestListDataURLs(t *testing.T) {
	d := listData{Base: "/admin/zones"}
	assert.Equal(t, "/admin/zones?op=page&page=4", d.PageURL(4))
	assert.Equal(t, "/admin/zones?column=name&op=sort", d.SortURL("name"))
	assert.Equal(t, "/admin/zones/export?format=pdf&scope=all", d.ExportURL("pdf", "all"))
}

func TestBuildModal(t *testing.T) {
	def := userDef(t)
	sc := &scope{Def: def, Base: "/admin/users"}
	snap := listctl.Snapshot{
		Subject: models.Record{"id": int64(5)},
		Lookups: models.Lookups{"centers": {{"id": int64(3), "name": "North"}, {"id": int64(4), "name": "South"}}},
	}

	md := buildModal(sc, snap, listctl.ModeEdit, map[string]any{"center": "4"}, "", "tok")
	assert.Equal(t, "/admin/users/5", md.Action)
	assert.False(t, md.ReadOnly)

	var center fieldVM
	for _, f := range md.Fields {
		if f.Name == "center" {
			center = f
		}
	}
	require.Len(t, center.Options, 2)
	assert.False(t, center.Options[0].Selected)
	assert.True(t, center.Options[1].Selected)

	view := buildModal(sc, snap, listctl.ModeView, nil, "", "")
	assert.True(t, view.ReadOnly)

	create := buildModal(sc, snap, listctl.ModeCreate, nil, "", "")
	assert.Equal(t, "/admin/users", create.Action)
}

func TestBuildModal_ErrorKeepsInlineFormattingOnly(t *testing.T) {
	sc := &scope{Def: categoryDef(t), Base: "/admin/categories"}
	md := buildModal(sc, listctl.Snapshot{}, listctl.ModeCreate, nil, `<b>Name</b> taken<iframe src="https://evil.example"></iframe>`, "")
	assert.Equal(t, template.HTML("<b>Name</b> taken"), md.Error)
}

func TestPrintRows_StripMarkup(t *testing.T) {
	cols := []catalog.Column{{Key: "name", Label: "Name"}, {Key: "description", Label: "Description"}}
	recs := []models.Record{{"name": "<b>Alpha</b>", "description": "A &amp; B<script>x()</script>"}}
	assert.Equal(t, [][]string{{"Alpha", "A & B"}}, printRows(recs, cols))
}
