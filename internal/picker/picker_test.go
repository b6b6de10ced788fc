package picker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/terrarium/internal/form"
	"github.com/and161185/terrarium/internal/model"
)

func writeImage(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("\x89PNG fake"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestFilePicker_Success(t *testing.T) {
	t.Parallel()

	p := writeImage(t, "fern.png")
	fp := NewFilePicker(Path(p), zaptest.NewLogger(t))

	ref, ok := fp.RequestImage(context.Background())
	if !ok {
		t.Fatalf("expected selection")
	}
	if ref != model.ImageRef("file://"+p) {
		t.Fatalf("ref=%q", ref)
	}
	if ref.Filename() != "fern.png" {
		t.Fatalf("filename=%q", ref.Filename())
	}
}

func TestFilePicker_NoSelection(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cases := map[string]Chooser{
		"cancelled": Path(""),
		"missing":   Path(filepath.Join(dir, "nope.png")),
		"directory": Path(dir),
		"chooser error": func(context.Context) (string, error) {
			return "", errors.New("permission denied")
		},
	}
	for name, ch := range cases {
		fp := NewFilePicker(ch, nil)
		if ref, ok := fp.RequestImage(context.Background()); ok || ref != "" {
			t.Fatalf("%s: want no selection, got %q", name, ref)
		}
	}
}

func TestSelect_KeepsPriorSelectionOnCancel(t *testing.T) {
	t.Parallel()

	first := writeImage(t, "a.jpg")
	f := form.New()

	if !Select(context.Background(), NewFilePicker(Path(first), nil), f) {
		t.Fatalf("first selection should succeed")
	}
	prev := pickedImage(f)

	if Select(context.Background(), NewFilePicker(Path(""), nil), f) {
		t.Fatalf("cancel must report no change")
	}
	if pickedImage(f) != prev {
		t.Fatalf("cancel changed selection: %q -> %q", prev, pickedImage(f))
	}

	if Select(context.Background(), NewFilePicker(Path("/definitely/not/here.png"), nil), f) {
		t.Fatalf("inaccessible file must report no change")
	}
	if pickedImage(f) != prev {
		t.Fatalf("denied changed selection")
	}

	second := writeImage(t, "b.png")
	if !Select(context.Background(), NewFilePicker(Path(second), nil), f) {
		t.Fatalf("second selection should succeed")
	}
	if pickedImage(f).Filename() != "b.png" {
		t.Fatalf("selection not replaced: %q", pickedImage(f))
	}
}

func pickedImage(f *form.Form) model.ImageRef {
	_, img := f.Snapshot()
	return img
}
