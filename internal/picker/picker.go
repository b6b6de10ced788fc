// Package picker adapts a local image source to the form workflow.
//
// A picker never surfaces errors to the user: a denied permission and a
// cancelled dialog both read as "no selection" and leave the form untouched.
package picker

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/and161185/terrarium/internal/form"
	"github.com/and161185/terrarium/internal/model"
)

// Picker returns a local image reference, or false when nothing was selected.
type Picker interface {
	RequestImage(ctx context.Context) (model.ImageRef, bool)
}

// Chooser asks the user for a file path. An empty path means the user cancelled.
type Chooser func(ctx context.Context) (string, error)

// Path returns a Chooser that always picks p.
func Path(p string) Chooser {
	return func(context.Context) (string, error) { return p, nil }
}

// FilePicker picks images from the local filesystem.
type FilePicker struct {
	choose Chooser
	log    *zap.Logger
}

// NewFilePicker constructs a FilePicker. A nil logger disables logging.
func NewFilePicker(choose Chooser, log *zap.Logger) *FilePicker {
	if log == nil {
		log = zap.NewNop()
	}
	return &FilePicker{choose: choose, log: log}
}

// RequestImage runs the chooser and checks that the result is a readable regular file.
func (p *FilePicker) RequestImage(ctx context.Context) (model.ImageRef, bool) {
	path, err := p.choose(ctx)
	if err != nil {
		p.log.Debug("image chooser failed", zap.Error(err))
		return "", false
	}
	if path == "" {
		p.log.Debug("image selection cancelled")
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		p.log.Debug("image path", zap.String("path", path), zap.Error(err))
		return "", false
	}
	if !readable(abs) {
		p.log.Debug("image not accessible", zap.String("path", abs))
		return "", false
	}
	return model.ImageRef(abs).Normalize(), true
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	fi, err := f.Stat()
	return err == nil && fi.Mode().IsRegular()
}

// Select requests an image and stores it on f. Returns whether the selection changed.
func Select(ctx context.Context, p Picker, f *form.Form) bool {
	ref, ok := p.RequestImage(ctx)
	if !ok {
		return false
	}
	f.SetImage(ref)
	return true
}
