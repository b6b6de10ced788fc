// Package client submits plant records to the remote plants API.
//
// Every call returns either a Result or a typed error from package errs;
// failures are logged here but rendering them is left to the caller.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/terrarium/internal/errs"
	"github.com/and161185/terrarium/internal/model"
	"github.com/and161185/terrarium/internal/session"
)

// Op names a submission operation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// maxErrorBody caps how much of an error response is kept in HTTPError.
const maxErrorBody = 4 << 10

// Result describes a successful submission.
type Result struct {
	Op         Op
	PlantID    string
	Nickname   string
	StatusCode int
}

// Message is the user-facing confirmation for the result.
func (r Result) Message() string {
	switch r.Op {
	case OpCreate:
		return r.Nickname + " was added to your terrarium"
	case OpUpdate:
		return r.Nickname + " was updated 🧑‍🌾"
	case OpDelete:
		return r.Nickname + " was deleted 😭"
	}
	return ""
}

// Opener opens the local file behind an image reference.
type Opener func(ref model.ImageRef) (io.ReadCloser, error)

func openFile(ref model.ImageRef) (io.ReadCloser, error) { return os.Open(ref.Path()) }

// Client talks to {baseURL}plants/... with a bearer token from its TokenSource.
type Client struct {
	base   string
	tokens session.TokenSource
	http   *http.Client
	log    *zap.Logger
	open   Opener
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (and its transport).
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option { return func(c *Client) { c.log = log } }

// WithOpener replaces how picked images are read.
func WithOpener(o Opener) Option { return func(c *Client) { c.open = o } }

// WithTimeout sets a per-request timeout on the default HTTP client. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.http != nil {
			c.http.Timeout = d
		}
	}
}

// New constructs a Client. baseURL must be absolute; a trailing slash is added if missing.
func New(baseURL string, tokens session.TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	if tokens == nil {
		return nil, fmt.Errorf("nil token source")
	}
	c := &Client{
		base:   strings.TrimRight(baseURL, "/") + "/",
		tokens: tokens,
		log:    zap.NewNop(),
		open:   openFile,
	}
	c.http = &http.Client{}
	for _, o := range opts {
		o(c)
	}
	if c.http.Transport == nil {
		c.http.Transport = LoggingTransport(c.log, http.DefaultTransport)
	}
	return c, nil
}

// newRequest builds an authorised request. The token is read right before sending.
func (c *Client) newRequest(ctx context.Context, op Op, method, path string, body io.Reader) (*http.Request, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.Warn("no usable session token", zap.String("op", string(op)), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req once (no retry) and maps failures to errs types.
func (c *Client) do(req *http.Request, op Op) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		nerr := &errs.NetworkError{Op: string(op), Err: err}
		c.log.Error("plant request failed", zap.String("op", string(op)), zap.Error(nerr))
		return 0, nil, nerr
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := &errs.HTTPError{Op: string(op), StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		c.log.Error("plant request rejected",
			zap.String("op", string(op)),
			zap.Int("status", resp.StatusCode),
			zap.Error(herr),
		)
		return resp.StatusCode, body, herr
	}
	return resp.StatusCode, body, nil
}
