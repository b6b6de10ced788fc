// Package form holds the editable state of a plant record between mount and submit.
package form

import (
	"sync"
	"time"

	"github.com/and161185/terrarium/internal/catalog"
	"github.com/and161185/terrarium/internal/errs"
	"github.com/and161185/terrarium/internal/model"
)

// Inline messages shown next to the submit button.
const (
	MsgRequired    = "Please enter a nickname and plant type"
	MsgUnknownType = "Please choose a plant type from the list"
)

// Form is the per-screen field state. Setters never validate; Validate runs at submit time.
type Form struct {
	mu    sync.Mutex
	now   func() time.Time
	types *catalog.Catalog

	plant   model.Plant
	image   model.ImageRef
	watered bool // lastWatered picked explicitly
}

// Option configures a Form.
type Option func(*Form)

// WithClock overrides time.Now (used for defaults and the lastWatered clamp).
func WithClock(now func() time.Time) Option { return func(f *Form) { f.now = now } }

// WithCatalog makes Validate reject types outside the catalog.
func WithCatalog(c *catalog.Catalog) Option { return func(f *Form) { f.types = c } }

// New returns an add-screen form with default values.
func New(opts ...Option) *Form {
	f := &Form{now: time.Now}
	for _, o := range opts {
		o(f)
	}
	f.plant = model.Plant{
		LastWatered:       f.now(),
		WateringFrequency: model.DefaultWateringFrequency,
	}
	return f
}

// FromPlant returns an edit-screen form populated from an existing record.
func FromPlant(p model.Plant, opts ...Option) *Form {
	f := &Form{now: time.Now}
	for _, o := range opts {
		o(f)
	}
	f.plant = p
	return f
}

// Snapshot returns a copy of the current values and the picked image.
func (f *Form) Snapshot() (model.Plant, model.ImageRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plant, f.image
}

// Nickname returns the current nickname.
func (f *Form) Nickname() string {
	p, _ := f.Snapshot()
	return p.Nickname
}

func (f *Form) update(fn func(p *model.Plant)) {
	f.mu.Lock()
	fn(&f.plant)
	f.mu.Unlock()
}

func (f *Form) SetUserID(v string)            { f.update(func(p *model.Plant) { p.UserID = v }) }
func (f *Form) SetNickname(v string)          { f.update(func(p *model.Plant) { p.Nickname = v }) }
func (f *Form) SetType(v string)              { f.update(func(p *model.Plant) { p.Type = v }) }
func (f *Form) SetWateringFrequency(v string) { f.update(func(p *model.Plant) { p.WateringFrequency = v }) }
func (f *Form) SetNotes(v string)             { f.update(func(p *model.Plant) { p.Notes = v }) }

// SetImage replaces the picked image. An empty ref clears it.
func (f *Form) SetImage(r model.ImageRef) {
	f.mu.Lock()
	f.image = r
	f.mu.Unlock()
}

// SetLastWatered stores t, clamped to now. A zero t keeps the current value,
// matching a dismissed date picker.
func (f *Form) SetLastWatered(t time.Time) {
	if t.IsZero() {
		return
	}
	now := f.now()
	if t.After(now) {
		t = now
	}
	f.mu.Lock()
	f.plant.LastWatered = t
	f.watered = true
	f.mu.Unlock()
}

// LastWateredSet reports whether lastWatered was picked rather than defaulted.
func (f *Form) LastWateredSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watered
}

// Validate checks the current values.
func (f *Form) Validate() error {
	p, _ := f.Snapshot()
	return f.Check(p)
}

// Check validates p against the required fields and, with a catalog attached, the type.
func (f *Form) Check(p model.Plant) error {
	if missing := model.MissingRequired(p); len(missing) > 0 {
		return &errs.ValidationError{Fields: missing, Message: MsgRequired}
	}
	if f.types != nil && !f.types.Contains(p.Type) {
		return &errs.ValidationError{Fields: []string{"type"}, Message: MsgUnknownType}
	}
	return nil
}
