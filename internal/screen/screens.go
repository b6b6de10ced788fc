package screen

import (
	"context"
	"unicode/utf8"

	"github.com/and161185/terrarium/internal/client"
	"github.com/and161185/terrarium/internal/form"
	"github.com/and161185/terrarium/internal/model"
	"github.com/and161185/terrarium/internal/picker"
)

// Creator creates plants.
type Creator interface {
	Create(ctx context.Context, p model.Plant, img model.ImageRef) (client.Result, error)
}

// Editor updates and deletes plants.
type Editor interface {
	Update(ctx context.Context, plantID string, p model.Plant) (client.Result, error)
	Delete(ctx context.Context, plantID, nickname string) (client.Result, error)
}

// AddTitle is the form container title of the add screen.
const AddTitle = "Add a new plant"

// EditTitle returns the form container title of the edit screen.
// Long nicknames fall back to a generic title.
func EditTitle(nickname string) string {
	if utf8.RuneCountInString(nickname) < 10 {
		return "Edit " + nickname
	}
	return "Edit Plant"
}

func formOptions(cfg settings) []form.Option {
	opts := []form.Option{form.WithClock(cfg.now)}
	if cfg.types != nil {
		opts = append(opts, form.WithCatalog(cfg.types))
	}
	return opts
}

// ---- add ----

// AddScreen collects a new plant and creates it.
type AddScreen struct {
	*Controller
	form   *form.Form
	picker picker.Picker
	api    Creator
}

// NewAddScreen mounts an add screen with a default form.
func NewAddScreen(api Creator, p picker.Picker, opts ...Option) *AddScreen {
	cfg := buildSettings(opts)
	return &AddScreen{
		Controller: newController(cfg),
		form:       form.New(formOptions(cfg)...),
		picker:     p,
		api:        api,
	}
}

// Title of the screen.
func (s *AddScreen) Title() string { return AddTitle }

// Form returns the field state for read access. Use Edit to change fields.
func (s *AddScreen) Form() *form.Form { return s.form }

// Edit applies field changes.
func (s *AddScreen) Edit(fn func(f *form.Form)) { s.edit(func() { fn(s.form) }) }

// PickImage asks the picker for an image; a cancelled or denied pick keeps the previous one.
func (s *AddScreen) PickImage(ctx context.Context) bool {
	if s.picker == nil {
		return false
	}
	var changed bool
	s.edit(func() { changed = picker.Select(ctx, s.picker, s.form) })
	return changed
}

// Submit validates the form and creates the plant. On success the screen
// navigates to the listing after the add delay. An unpicked lastWatered is
// stamped with the submission time.
func (s *AddScreen) Submit(ctx context.Context) (client.Result, error) {
	p, img := s.form.Snapshot()
	if !s.form.LastWateredSet() {
		p.LastWatered = s.cfg.now()
	}
	return s.run(ctx, submission{
		op:       client.OpCreate,
		nickname: p.Nickname,
		kind:     KindSuccess,
		delay:    s.cfg.addDelay,
		send: func(ctx context.Context) (client.Result, error) {
			if err := s.form.Check(p); err != nil {
				return client.Result{}, err
			}
			return s.api.Create(ctx, p, img)
		},
	})
}

// ---- edit ----

// EditScreen edits or deletes an existing plant handed in by the caller.
type EditScreen struct {
	*Controller
	form *form.Form
	api  Editor
}

// NewEditScreen mounts an edit screen populated from p. p is not re-fetched.
func NewEditScreen(api Editor, p model.Plant, opts ...Option) *EditScreen {
	cfg := buildSettings(opts)
	return &EditScreen{
		Controller: newController(cfg),
		form:       form.FromPlant(p, formOptions(cfg)...),
		api:        api,
	}
}

// Title of the screen, derived from the current nickname.
func (s *EditScreen) Title() string { return EditTitle(s.form.Nickname()) }

// Form returns the field state for read access. Use Edit to change fields.
func (s *EditScreen) Form() *form.Form { return s.form }

// Edit applies field changes.
func (s *EditScreen) Edit(fn func(f *form.Form)) { s.edit(func() { fn(s.form) }) }

// Update sends the full record. Fields are not validated locally.
func (s *EditScreen) Update(ctx context.Context) (client.Result, error) {
	p, _ := s.form.Snapshot()
	return s.run(ctx, submission{
		op:       client.OpUpdate,
		nickname: p.Nickname,
		kind:     KindSuccess,
		delay:    s.cfg.updateDelay,
		send: func(ctx context.Context) (client.Result, error) {
			return s.api.Update(ctx, p.PlantID, p)
		},
	})
}

// Delete removes the plant and navigates immediately on success.
// A failed delete leaves the screen in place.
func (s *EditScreen) Delete(ctx context.Context) (client.Result, error) {
	p, _ := s.form.Snapshot()
	return s.run(ctx, submission{
		op:       client.OpDelete,
		nickname: p.Nickname,
		kind:     KindInfo,
		send: func(ctx context.Context) (client.Result, error) {
			return s.api.Delete(ctx, p.PlantID, p.Nickname)
		},
	})
}
