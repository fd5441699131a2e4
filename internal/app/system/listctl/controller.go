package listctl

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/dalemusser/carehub/internal/app/system/backend"
	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/domain/models"
)

// ErrSuperseded is returned to a fetch whose response arrived after a newer
// fetch was started. Its result is discarded.
var ErrSuperseded = errors.New("listctl: fetch superseded by a newer request")

// Lister is the read side of the backend used by a Controller.
type Lister interface {
	List(ctx context.Context, plural string, params url.Values) (backend.ListResult, error)
}

// Snapshot is a consistent copy of a Controller's state for rendering.
type Snapshot struct {
	Query    Query
	Page     models.PageEnvelope
	Lookups  models.Lookups
	Selected []int64
	Modal    Mode
	Subject  models.Record
	Loaded   bool
}

// IsSelected reports whether id is part of the snapshot's selection.
func (s Snapshot) IsSelected(id int64) bool {
	for _, v := range s.Selected {
		if v == id {
			return true
		}
	}
	return false
}

// AllPageSelected reports whether every row on the current page is selected.
func (s Snapshot) AllPageSelected() bool {
	if len(s.Page.Data) == 0 {
		return false
	}
	for _, id := range models.IDs(s.Page.Data) {
		if !s.IsSelected(id) {
			return false
		}
	}
	return true
}

// Controller owns the list state of one resource for one session. Every
// query mutation issues exactly one fetch; the response replaces the page
// wholesale. Overlapping fetches are ordered by a sequence number and
// the older one is cancelled, so a slow stale response never overwrites
// newer state.
type Controller struct {
	def *catalog.Definition

	mu      sync.Mutex
	query   Query
	page    models.PageEnvelope
	lookups models.Lookups
	loaded  bool
	sel     *Selection
	modal   Modal
	seq     uint64
	cancel  context.CancelFunc
}

// NewController returns a controller with the default query and an empty
// selection. Nothing is fetched until the first query operation.
func NewController(def *catalog.Definition) *Controller {
	return &Controller{
		def:   def,
		query: DefaultQuery(),
		page:  models.PageEnvelope{Data: []models.Record{}, CurrentPage: 1, LastPage: 1},
		sel:   NewSelection(),
	}
}

// Definition returns the resource this controller lists.
func (c *Controller) Definition() *catalog.Definition { return c.def }

// Query returns the committed query.
func (c *Controller) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Query:    c.query,
		Page:     c.page,
		Lookups:  c.lookups,
		Selected: c.sel.IDs(),
		Modal:    c.modal.Mode(),
		Subject:  c.modal.Subject(),
		Loaded:   c.loaded,
	}
}

// Fetch requests q from the backend. On success q and the response become
// the controller's state. On error the previous state is kept. A fetch
// overtaken by a later one returns ErrSuperseded and changes nothing.
func (c *Controller) Fetch(ctx context.Context, l Lister, q Query) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	mine := c.seq
	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	res, err := l.List(fctx, c.def.Plural, q.Values())

	c.mu.Lock()
	defer c.mu.Unlock()
	if mine != c.seq {
		cancel()
		return ErrSuperseded
	}
	c.cancel = nil
	cancel()
	if err != nil {
		return err
	}
	c.query = q
	c.page = res.Page.Normalize()
	c.lookups = res.Lookups
	c.loaded = true
	return nil
}

// Refresh re-fetches the committed query.
func (c *Controller) Refresh(ctx context.Context, l Lister) error {
	return c.Fetch(ctx, l, c.Query())
}

// Search sets the search term and resets to page 1.
func (c *Controller) Search(ctx context.Context, l Lister, term string) error {
	return c.Fetch(ctx, l, c.Query().WithSearch(term))
}

// Sort toggles or switches the sort column. A column that cannot be
// sorted leaves the query as it was.
func (c *Controller) Sort(ctx context.Context, l Lister, column string) error {
	if !Sortable(c.def, column) {
		return c.Refresh(ctx, l)
	}
	return c.Fetch(ctx, l, c.Query().WithSort(column))
}

// GoTo moves to page p. Selection is kept across pages.
func (c *Controller) GoTo(ctx context.Context, l Lister, p int) error {
	return c.Fetch(ctx, l, c.Query().WithPage(p))
}

// SetPerPage changes the page size and resets to page 1.
func (c *Controller) SetPerPage(ctx context.Context, l Lister, n int) error {
	return c.Fetch(ctx, l, c.Query().WithPerPage(n))
}

// Apply fetches an explicit query, used when the URL carries the full state.
func (c *Controller) Apply(ctx context.Context, l Lister, q Query) error {
	return c.Fetch(ctx, l, q)
}

// Toggle flips id in the selection and reports whether it is now selected.
func (c *Controller) Toggle(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.Toggle(id)
}

// TogglePage selects every row of the current page, or unselects them all
// when they were already all selected.
func (c *Controller) TogglePage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := models.IDs(c.page.Data)
	if c.sel.AllOf(ids) {
		c.sel.UnselectAll(ids)
		return
	}
	c.sel.SelectAll(ids)
}

// ClearSelection empties the selection.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sel.Clear()
}

// Selected returns the selected ids or ErrEmptySelection.
func (c *Controller) Selected() ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.Require()
}

// PageRows returns the rows of the current page.
func (c *Controller) PageRows() []models.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Record, len(c.page.Data))
	copy(out, c.page.Data)
	return out
}

// SelectedRows returns the selected records found on the current page.
func (c *Controller) SelectedRows() []models.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.Filter(c.page.Data)
}

// Record finds id on the current page.
func (c *Controller) Record(id int64) (models.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.Find(id)
}

// OpenModal opens mode for rec, closing any previous form first.
func (c *Controller) OpenModal(mode Mode, rec models.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modal.Close()
	if mode == ModeCreate {
		return c.modal.OpenCreate()
	}
	return c.modal.Open(mode, rec)
}

// CloseModal closes the form and drops its subject.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modal.Close()
}

// SubmitModal runs submit for the open form. On success the modal closes;
// on failure it stays open with its subject. The caller re-fetches.
func (c *Controller) SubmitModal(ctx context.Context, payload map[string]any, submit SubmitFunc) error {
	c.mu.Lock()
	m := c.modal
	c.mu.Unlock()

	if err := m.Submit(ctx, payload, submit); err != nil {
		return err
	}

	c.mu.Lock()
	c.modal.Close()
	c.mu.Unlock()
	return nil
}
