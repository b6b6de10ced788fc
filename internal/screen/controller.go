// Package screen drives the add/edit plant screens: it owns the form, runs one
// submission at a time and turns outcomes into notifications and navigation.
package screen

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/terrarium/internal/catalog"
	"github.com/and161185/terrarium/internal/client"
	"github.com/and161185/terrarium/internal/errs"
	"github.com/and161185/terrarium/internal/model"
)

// Navigation delays after a successful submission.
const (
	DefaultAddDelay    = time.Second
	DefaultUpdateDelay = 300 * time.Millisecond
)

// State of a screen's submission lifecycle.
type State int

const (
	Editing State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Kind of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindError   Kind = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Kind Kind
	Text string
}

// Notifier shows notifications.
type Notifier interface{ Notify(Notification) }

// Navigator moves to another route.
type Navigator interface{ Navigate(route string) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Timer is a pending scheduled call.
type Timer interface{ Stop() bool }

// Scheduler runs f after d.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type settings struct {
	log         *zap.Logger
	notifier    Notifier
	navigator   Navigator
	showNetErrs bool
	addDelay    time.Duration
	updateDelay time.Duration
	schedule    Scheduler
	types       *catalog.Catalog
	now         func() time.Time
}

// Option configures a screen.
type Option func(*settings)

func WithLogger(l *zap.Logger) Option       { return func(s *settings) { s.log = l } }
func WithNotifier(n Notifier) Option        { return func(s *settings) { s.notifier = n } }
func WithNavigator(n Navigator) Option      { return func(s *settings) { s.navigator = n } }
func WithScheduler(f Scheduler) Option      { return func(s *settings) { s.schedule = f } }
func WithCatalog(c *catalog.Catalog) Option { return func(s *settings) { s.types = c } }
func WithClock(now func() time.Time) Option { return func(s *settings) { s.now = now } }

// WithNetworkErrors controls whether network/HTTP failures produce an error
// notification. Off by default: such failures are only logged.
func WithNetworkErrors(show bool) Option { return func(s *settings) { s.showNetErrs = show } }

// WithDelays overrides the post-success navigation delays.
func WithDelays(add, update time.Duration) Option {
	return func(s *settings) { s.addDelay, s.updateDelay = add, update }
}

func buildSettings(opts []Option) settings {
	s := settings{
		log:         zap.NewNop(),
		notifier:    NotifierFunc(func(Notification) {}),
		navigator:   NavigatorFunc(func(string) {}),
		addDelay:    DefaultAddDelay,
		updateDelay: DefaultUpdateDelay,
		schedule:    afterFunc,
		now:         time.Now,
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Controller is the submission state machine shared by both screens.
type Controller struct {
	cfg settings

	mu        sync.Mutex
	state     State
	inline    string
	lastErr   error
	timer     Timer
	closed    bool
	navigated chan struct{}
	navOnce   sync.Once
}

func newController(cfg settings) *Controller {
	return &Controller{cfg: cfg, navigated: make(chan struct{})}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InlineError is the validation message to show next to the form, if any.
func (c *Controller) InlineError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inline
}

// LastError is the error of the most recent failed submission.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Navigated is closed once the screen navigated to the listing route.
func (c *Controller) Navigated() <-chan struct{} { return c.navigated }

// Close cancels a pending navigation and rejects further submissions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// edit applies a field change; a failed screen returns to Editing.
func (c *Controller) edit(fn func()) {
	c.mu.Lock()
	if c.state == Failed {
		c.state = Editing
	}
	c.mu.Unlock()
	fn()
}

// submission describes one run of the state machine.
type submission struct {
	op       client.Op
	nickname string
	kind     Kind
	delay    time.Duration
	send     func(ctx context.Context) (client.Result, error)
}

func (c *Controller) run(ctx context.Context, sub submission) (client.Result, error) {
	c.mu.Lock()
	switch {
	case c.closed || c.state == Succeeded:
		c.mu.Unlock()
		return client.Result{}, errs.ErrScreenClosed
	case c.state == Submitting:
		c.mu.Unlock()
		return client.Result{}, errs.ErrSubmitInProgress
	}
	c.state = Submitting
	c.inline = ""
	c.mu.Unlock()

	id := uuid.Must(uuid.NewV4()).String()
	log := c.cfg.log.With(zap.String("op", string(sub.op)), zap.String("submission", id))
	log.Debug("submitting")

	res, err := c.send(ctx, log, sub)
	if err != nil {
		c.fail(log, sub, err)
		return client.Result{}, err
	}

	c.mu.Lock()
	c.state = Succeeded
	c.lastErr = nil
	c.mu.Unlock()

	c.cfg.notifier.Notify(Notification{Kind: sub.kind, Text: res.Message()})
	c.scheduleNavigation(sub.delay)
	return res, nil
}

// send calls sub.send, converting a panic into an error.
func (c *Controller) send(ctx context.Context, log *zap.Logger, sub submission) (res client.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic",
				zap.Any("reason", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("%s: internal error: %v", sub.op, r)
		}
	}()
	return sub.send(ctx)
}

func (c *Controller) fail(log *zap.Logger, sub submission, err error) {
	var ve *errs.ValidationError
	isValidation := errors.As(err, &ve)

	c.mu.Lock()
	c.state = Failed
	c.lastErr = err
	if isValidation {
		c.inline = ve.Error()
	}
	c.mu.Unlock()

	if isValidation {
		log.Info("submission rejected", zap.Error(err))
		return
	}
	log.Error("submission failed", zap.Error(err))
	if c.cfg.showNetErrs {
		c.cfg.notifier.Notify(Notification{Kind: KindError, Text: failureText(sub.op, sub.nickname)})
	}
}

func failureText(op client.Op, nickname string) string {
	if nickname == "" {
		nickname = "Plant"
	}
	switch op {
	case client.OpCreate:
		return nickname + " could not be added"
	case client.OpUpdate:
		return nickname + " could not be updated"
	case client.OpDelete:
		return nickname + " could not be deleted"
	}
	return "Something went wrong"
}

func (c *Controller) scheduleNavigation(delay time.Duration) {
	if delay <= 0 {
		c.navigate()
		return
	}
	t := c.cfg.schedule(delay, c.navigate)
	c.mu.Lock()
	c.timer = t
	c.mu.Unlock()
}

func (c *Controller) navigate() {
	c.mu.Lock()
	closed := c.closed
	c.timer = nil
	c.mu.Unlock()
	if closed {
		return
	}
	c.navOnce.Do(func() {
		c.cfg.navigator.Navigate(model.ListingRoute)
		close(c.navigated)
	})
}
