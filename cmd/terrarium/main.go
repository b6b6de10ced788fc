// Command terrarium adds, edits and removes plants in a remote terrarium.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/terrarium/internal/catalog"
	"github.com/and161185/terrarium/internal/client"
	"github.com/and161185/terrarium/internal/config"
	"github.com/and161185/terrarium/internal/errs"
	"github.com/and161185/terrarium/internal/form"
	"github.com/and161185/terrarium/internal/model"
	"github.com/and161185/terrarium/internal/picker"
	"github.com/and161185/terrarium/internal/screen"
	"github.com/and161185/terrarium/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// errUsage marks bad invocations; run maps it to exit code 2.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// ---- app ----

type app struct {
	cfg    config.Config
	log    *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Notify prints notifications to stdout.
func (a *app) Notify(n screen.Notification) {
	if n.Kind == screen.KindError {
		fmt.Fprintln(a.stderr, n.Text)
		return
	}
	fmt.Fprintln(a.stdout, n.Text)
}

// Navigate prints the destination route.
func (a *app) Navigate(route string) { fmt.Fprintf(a.stdout, "→ %s\n", route) }

func (a *app) session() (*session.Session, error) {
	store, err := session.OpenFileStore(a.cfg.StateDir, a.cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	return session.New(store), nil
}

func (a *app) catalog() (*catalog.Catalog, error) {
	if a.cfg.PlantTypesFile == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(a.cfg.PlantTypesFile)
}

func (a *app) client(s *session.Session) (*client.Client, error) {
	return client.New(a.cfg.BaseURL, s,
		client.WithLogger(a.log),
		client.WithTimeout(a.cfg.Timeout),
	)
}

func (a *app) screenOptions(types *catalog.Catalog) []screen.Option {
	opts := append(a.cfg.ScreenOptions(),
		screen.WithLogger(a.log),
		screen.WithNotifier(a),
		screen.WithNavigator(a),
	)
	if types != nil {
		opts = append(opts, screen.WithCatalog(types))
	}
	return opts
}

// finish reports a submission outcome and waits for a pending navigation.
func (a *app) finish(ctx context.Context, c *screen.Controller, err error) error {
	if err != nil {
		if inline := c.InlineError(); inline != "" {
			fmt.Fprintln(a.stderr, inline)
		}
		return err
	}
	select {
	case <-c.Navigated():
	case <-ctx.Done():
		c.Close()
	}
	return nil
}

// ---- run ----

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	gfs := flag.NewFlagSet("terrarium", flag.ContinueOnError)
	gfs.SetOutput(stderr)
	baseURL := gfs.String("base-url", "", "plants API base URL")
	stateDir := gfs.String("state-dir", "", "directory holding the sealed token store")
	cfgPath := gfs.String("config", "", "config file (TOML)")
	verbose := gfs.Bool("v", false, "verbose logging")
	showErrs := gfs.Bool("show-errors", false, "notify on network and HTTP failures")
	gfs.Usage = func() { usage(stderr) }
	if err := gfs.Parse(args); err != nil {
		return 2
	}
	if gfs.NArg() < 1 {
		usage(stderr)
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	gfs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.BaseURL = *baseURL
		case "state-dir":
			cfg.StateDir = *stateDir
		case "show-errors":
			cfg.ShowNetworkErrors = *showErrs
		}
	})

	log := newLogger(*verbose, stderr)
	defer func() { _ = log.Sync() }()

	a := &app{cfg: cfg, log: log, stdin: stdin, stdout: stdout, stderr: stderr}
	cmd, rest := gfs.Arg(0), gfs.Args()[1:]

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "terrarium %s (%s)\n", version, buildDate)
	case "types":
		err = a.types()
	case "token":
		err = a.token(ctx, rest)
	case "add":
		err = a.add(ctx, rest)
	case "edit":
		err = a.edit(ctx, rest)
	case "rm":
		err = a.rm(ctx, rest)
	default:
		usage(stderr)
		return 2
	}
	return exitCode(stderr, err)
}

func exitCode(stderr io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, errs.ErrValidation):
		// already printed inline
		return 1
	}
	fmt.Fprintln(stderr, err)
	return 1
}

// newLogger writes JSON at warn level to stderr, or console output at debug level with -v.
func newLogger(verbose bool, stderr io.Writer) *zap.Logger {
	if verbose {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, zapcore.AddSync(stderr), zap.DebugLevel), zap.AddCaller())
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(stderr), zap.WarnLevel))
}

// ---- commands ----

func (a *app) types() error {
	c, err := a.catalog()
	if err != nil {
		return err
	}
	for _, t := range c.Types() {
		fmt.Fprintln(a.stdout, t.Name)
	}
	return nil
}

func (a *app) token(ctx context.Context, args []string) error {
	fs := newFlagSet("token", a.stderr)
	set := fs.String("set", "", "store a token (- reads stdin)")
	clr := fs.Bool("clear", false, "remove the stored token")
	show := fs.Bool("show", false, "print the token's user and expiry")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s, err := a.session()
	if err != nil {
		return err
	}
	switch {
	case *set != "":
		tok := *set
		if tok == "-" {
			b, err := io.ReadAll(a.stdin)
			if err != nil {
				return err
			}
			tok = string(b)
		}
		if err := s.SetToken(tok); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "ok")
	case *clr:
		if err := s.Clear(); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		fmt.Fprintln(a.stdout, "ok")
	case *show:
		if _, err := s.Token(ctx); err != nil {
			return err
		}
		uid, _ := s.UserID(ctx)
		exp, _ := s.ExpiresAt(ctx)
		printJSON(a.stdout, map[string]any{"userId": uid, "expiresAt": exp})
	default:
		fmt.Fprintln(a.stderr, "need one of -set, -clear, -show")
		return errUsage
	}
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add", a.stderr)
	nickname := fs.String("nickname", "", "plant nickname")
	typ := fs.String("type", "", "plant type (see `terrarium types`)")
	image := fs.String("image", "", "image file")
	watered := fs.String("last-watered", "", "last watered date (YYYY-MM-DD or RFC 3339)")
	every := fs.String("every", model.DefaultWateringFrequency, "watering frequency in days")
	notes := fs.String("notes", "", "notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	when, err := parseDate(*watered)
	if err != nil {
		return err
	}

	s, types, api, err := a.deps()
	if err != nil {
		return err
	}
	var pick picker.Picker
	if *image != "" {
		pick = picker.NewFilePicker(picker.Path(*image), a.log)
	}
	uid := a.userID(ctx, s)

	scr := screen.NewAddScreen(api, pick, a.screenOptions(types)...)
	defer scr.Close()
	if pick != nil && !scr.PickImage(ctx) {
		return fmt.Errorf("image %q is not a readable file", *image)
	}
	scr.Edit(func(f *form.Form) {
		f.SetUserID(uid)
		f.SetNickname(*nickname)
		f.SetType(*typ)
		f.SetWateringFrequency(*every)
		f.SetNotes(*notes)
		f.SetLastWatered(when)
	})
	_, err = scr.Submit(ctx)
	return a.finish(ctx, scr.Controller, err)
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := newFlagSet("edit", a.stderr)
	from := fs.String("from", "", "plant record JSON file (- reads stdin)")
	nickname := fs.String("nickname", "", "new nickname")
	typ := fs.String("type", "", "new plant type")
	watered := fs.String("last-watered", "", "last watered date (YYYY-MM-DD or RFC 3339)")
	every := fs.String("every", "", "watering frequency in days")
	notes := fs.String("notes", "", "notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *from == "" {
		fmt.Fprintln(a.stderr, "need -from")
		return errUsage
	}
	p, err := a.readPlant(*from)
	if err != nil {
		return err
	}
	when, err := parseDate(*watered)
	if err != nil {
		return err
	}

	_, _, api, err := a.deps()
	if err != nil {
		return err
	}
	scr := screen.NewEditScreen(api, p, a.screenOptions(nil)...)
	defer scr.Close()
	fmt.Fprintln(a.stdout, scr.Title())

	scr.Edit(func(f *form.Form) {
		fs.Visit(func(fl *flag.Flag) {
			switch fl.Name {
			case "nickname":
				f.SetNickname(*nickname)
			case "type":
				f.SetType(*typ)
			case "every":
				f.SetWateringFrequency(*every)
			case "notes":
				f.SetNotes(*notes)
			case "last-watered":
				f.SetLastWatered(when)
			}
		})
	})
	_, err = scr.Update(ctx)
	return a.finish(ctx, scr.Controller, err)
}

func (a *app) rm(ctx context.Context, args []string) error {
	fs := newFlagSet("rm", a.stderr)
	from := fs.String("from", "", "plant record JSON file (- reads stdin)")
	id := fs.String("id", "", "plant id")
	nickname := fs.String("nickname", "", "plant nickname, used in the notification")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var p model.Plant
	switch {
	case *from != "":
		var err error
		if p, err = a.readPlant(*from); err != nil {
			return err
		}
	case *id != "":
		p = model.Plant{PlantID: *id, Nickname: *nickname}
	default:
		fmt.Fprintln(a.stderr, "need -from or -id")
		return errUsage
	}

	_, _, api, err := a.deps()
	if err != nil {
		return err
	}
	scr := screen.NewEditScreen(api, p, a.screenOptions(nil)...)
	defer scr.Close()
	_, err = scr.Delete(ctx)
	return a.finish(ctx, scr.Controller, err)
}

// ---- utils ----

func (a *app) deps() (*session.Session, *catalog.Catalog, *client.Client, error) {
	s, err := a.session()
	if err != nil {
		return nil, nil, nil, err
	}
	types, err := a.catalog()
	if err != nil {
		return nil, nil, nil, err
	}
	api, err := a.client(s)
	if err != nil {
		return nil, nil, nil, err
	}
	return s, types, api, nil
}

// userID reads the owner from the stored token. A missing id leaves userid empty;
// the request itself reports the missing token.
func (a *app) userID(ctx context.Context, s *session.Session) string {
	uid, err := s.UserID(ctx)
	if err != nil {
		a.log.Debug("no user id in token", zap.Error(err))
		return ""
	}
	return uid
}

func (a *app) readPlant(p string) (model.Plant, error) {
	b, err := readAll(p, a.stdin)
	if err != nil {
		return model.Plant{}, err
	}
	var plant model.Plant
	if err := json.Unmarshal(b, &plant); err != nil {
		return model.Plant{}, fmt.Errorf("parse plant: %w", err)
	}
	if plant.PlantID == "" {
		return model.Plant{}, errors.New("plant record has no plantid")
	}
	return plant, nil
}

// parseFlags reports parse failures as usage errors; the flag set already printed them.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseDate accepts a calendar date (local midnight) or an RFC 3339 timestamp.
// An empty string yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func readAll(p string, stdin io.Reader) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `terrarium CLI
Usage:
  terrarium [-base-url URL] [-state-dir DIR] [-config FILE] [-v] [-show-errors] <cmd> [args]

Commands:
  version
  types                                        (known plant types)
  token  -set <jwt|-> | -clear | -show
  add    -nickname <name> -type <type> [-image file] [-last-watered date] [-every days] [-notes text]
  edit   -from <plant.json|-> [-nickname ..] [-type ..] [-every ..] [-notes ..] [-last-watered ..]
  rm     -from <plant.json|-> | -id <plantId> [-nickname name]
`)
}
