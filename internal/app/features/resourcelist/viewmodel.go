package resourcelist

import (
	"html/template"
	"net/url"
	"strconv"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/export"
	"github.com/dalemusser/carehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/carehub/internal/app/system/listctl"
	"github.com/dalemusser/carehub/internal/app/system/paging"
	"github.com/dalemusser/carehub/internal/app/system/viewdata"
	"github.com/dalemusser/carehub/internal/domain/models"
)

// perPageOptions are the page sizes offered by the toolbar.
var perPageOptions = []int{10, 25, 50, 100}

type columnVM struct {
	Key      string
	Label    string
	Sortable bool
	SortAsc  bool
	SortDesc bool
	Status   bool
	Actions  bool
}

// cellVM is one table cell, aligned with the column list.
type cellVM struct {
	Text    string
	Status  bool
	Actions bool
}

type rowVM struct {
	ID       int64
	Selected bool
	Active   bool
	Status   string
	Cells    []cellVM
}

type capsVM struct {
	Create bool
	Edit   bool
	Delete bool
	Status bool
	Bulk   bool
	Export bool
	Import bool
	Print  bool
	Assign bool
}

type listData struct {
	viewdata.BaseVM

	Def       catalog.Definition
	Base      string
	Query     listctl.Query
	Columns   []columnVM
	Rows      []rowVM
	Nav       paging.Nav
	Can       capsVM
	Selected  int
	AllOnPage bool
	PerPage   []int

	// Partial is set on HTMX responses, which carry out-of-band swaps.
	Partial bool
	// Notices render into #notice on partial responses.
	Notices []auth.Flash
	// CloseModal empties #modal on partial responses.
	CloseModal bool
	// Modal is set when the page is rendered with a form open.
	Modal *modalData
}

// TableWidth counts the table's columns including the leading checkbox.
func (d listData) TableWidth() int { return len(d.Columns) + 1 }

// PageURL links to page of the current query.
func (d listData) PageURL(page int) string {
	return d.Base + "?" + url.Values{"op": {"page"}, "page": {strconv.Itoa(page)}}.Encode()
}

func (d listData) SortURL(column string) string {
	return d.Base + "?" + url.Values{"op": {"sort"}, "column": {column}}.Encode()
}

func (d listData) ExportURL(format, scope string) string {
	return d.Base + "/export?" + url.Values{"format": {format}, "scope": {scope}}.Encode()
}

func capabilities(def catalog.Definition, u *auth.SessionUser) capsVM {
	return capsVM{
		Create: u.Can(def.Permission(catalog.ActionCreate)),
		Edit:   u.Can(def.Permission(catalog.ActionEdit)),
		Delete: u.Can(def.Permission(catalog.ActionDelete)),
		Status: def.Toggle && u.Can(def.Permission(catalog.ActionStatus)),
		Bulk:   def.Bulk && u.Can(def.Permission(catalog.ActionStatus)),
		Export: u.Can(def.Permission(catalog.ActionExport)),
		Import: def.Import && u.Can(def.Permission(catalog.ActionImport)),
		Print:  u.Can(def.Permission(catalog.ActionPrint)),
		Assign: def.CanAssign() && u.Can(def.Permission(catalog.ActionEdit)),
	}
}

func columns(def catalog.Definition, q listctl.Query) []columnVM {
	out := make([]columnVM, 0, len(def.Columns))
	for _, c := range def.Columns {
		vm := columnVM{Key: c.Key, Label: c.Label}
		switch c.Key {
		case catalog.KeyActions:
			vm.Actions = true
		case catalog.KeyStatus:
			vm.Status = true
			vm.Sortable = true
		default:
			vm.Sortable = true
		}
		if vm.Sortable && q.SortBy == c.Key {
			vm.SortAsc = q.SortDir == listctl.Asc
			vm.SortDesc = q.SortDir == listctl.Desc
		}
		out = append(out, vm)
	}
	return out
}

// rows flattens the page for the table. Data cells use the same
// flattening as the exports.
func rows(def catalog.Definition, snap listctl.Snapshot) []rowVM {
	out := make([]rowVM, 0, len(snap.Page.Data))
	for _, rec := range snap.Page.Data {
		id, ok := rec.ID()
		if !ok {
			continue
		}
		cells := make([]cellVM, len(def.Columns))
		for i, c := range def.Columns {
			switch c.Key {
			case catalog.KeyActions:
				cells[i] = cellVM{Actions: true}
			case catalog.KeyStatus:
				cells[i] = cellVM{Status: true, Text: rec.Status()}
			default:
				cells[i] = cellVM{Text: export.Flatten(rec[c.Key])}
			}
		}
		out = append(out, rowVM{
			ID:       id,
			Selected: snap.IsSelected(id),
			Active:   rec.IsActive(),
			Status:   rec.Status(),
			Cells:    cells,
		})
	}
	return out
}

func (h *Handler) listData(base viewdata.BaseVM, sc *scope, snap listctl.Snapshot) listData {
	return listData{
		BaseVM:    base,
		Def:       sc.Def,
		Base:      sc.Base,
		Query:     snap.Query,
		Columns:   columns(sc.Def, snap.Query),
		Rows:      rows(sc.Def, snap),
		Nav:       paging.Build(snap.Page),
		Can:       capabilities(sc.Def, sc.User),
		Selected:  len(snap.Selected),
		AllOnPage: snap.AllPageSelected(),
		PerPage:   perPageOptions,
	}
}

// optionVM is one choice of a select widget.
type optionVM struct {
	Value    string
	Label    string
	Selected bool
}

type fieldVM struct {
	Name     string
	Label    string
	Widget   string
	Required bool
	Value    string
	Options  []optionVM
	Multi    bool
}

type modalData struct {
	Def       catalog.Definition
	Base      string
	Mode      listctl.Mode
	ReadOnly  bool
	Title     string
	Action    string
	Fields    []fieldVM
	Error     template.HTML // backend messages keep inline formatting
	CSRFToken string
}

func modalTitle(def catalog.Definition, mode listctl.Mode) string {
	switch mode {
	case listctl.ModeCreate:
		return "New " + def.Name
	case listctl.ModeEdit:
		return "Edit " + def.Name
	case listctl.ModeAssign:
		return "Assign " + def.Name
	}
	return "View " + def.Name
}

func modalFields(def catalog.Definition, mode listctl.Mode) []catalog.Field {
	if mode == listctl.ModeAssign {
		return def.AssignFields
	}
	return def.Fields
}

// buildModal renders fields with values, which are either mapped from the
// subject record or echoed back from a failed submission.
func buildModal(sc *scope, snap listctl.Snapshot, mode listctl.Mode, values map[string]any, errMsg, csrfToken string) *modalData {
	fields := modalFields(sc.Def, mode)
	md := &modalData{
		Def:       sc.Def,
		Base:      sc.Base,
		Mode:      mode,
		ReadOnly:  mode == listctl.ModeView,
		Title:     modalTitle(sc.Def, mode),
		Action:    sc.Base,
		Error:     htmlsanitize.Message(errMsg),
		CSRFToken: csrfToken,
	}
	if mode != listctl.ModeCreate {
		if id, ok := snap.Subject.ID(); ok {
			md.Action = sc.Base + "/" + strconv.FormatInt(id, 10)
		}
	}
	for _, f := range fields {
		fv := fieldVM{
			Name:     f.Name,
			Label:    f.Label,
			Widget:   f.Widget,
			Required: f.Required,
			Multi:    f.Multi,
		}
		chosen := map[string]bool{}
		switch v := values[f.Name].(type) {
		case string:
			fv.Value = v
			chosen[v] = true
		case []string:
			for _, s := range v {
				chosen[s] = true
			}
		}
		if f.Options != "" {
			fv.Options = options(snap.Lookups[f.Options], chosen)
		}
		md.Fields = append(md.Fields, fv)
	}
	return md
}

func options(recs []models.Record, chosen map[string]bool) []optionVM {
	out := make([]optionVM, 0, len(recs))
	for _, rec := range recs {
		id := rec.IDString()
		if id == "" {
			continue
		}
		label := export.Flatten(rec["name"])
		if label == "" {
			label = export.Flatten(rec["label"])
		}
		if label == "" {
			label = id
		}
		out = append(out, optionVM{Value: id, Label: label, Selected: chosen[id]})
	}
	return out
}
