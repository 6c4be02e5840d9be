// Package httpclient is the single HTTP transport used by the relay, both
// for completion provider calls and for image downloads.
//
// Each request carries its own timeout. When Request.Sink is set and the
// response is 2xx, the body is streamed into the sink instead of being
// buffered, so large downloads never sit in memory.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	apperrors "github.com/chatmaster/relay-bot/internal/core/errors"
)

const (
	defaultTimeout   = 60 * time.Second
	maxBodySizeMB    = 10
	maxBodySizeBytes = maxBodySizeMB * 1024 * 1024
	maxRedirects     = 5
	defaultUserAgent = "ChatMasterBot/1.0"
)

// ErrTooManyRedirects indicates too many HTTP redirects.
var ErrTooManyRedirects = errors.New("too many redirects")

// Request describes one HTTP exchange.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
	// Sink receives the body of a 2xx response as it arrives.
	Sink io.Writer
}

// Response is the outcome of a request that reached the server.
type Response struct {
	Status int
	Header http.Header
	// Body is empty when the body was streamed to Request.Sink.
	Body []byte
	// Written counts bytes streamed to Request.Sink.
	Written int64
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// Doer is implemented by Client; components depend on it so tests can
// substitute a fake transport.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

type Client struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// New creates a client whose requests default to timeout when a request
// does not set its own.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		client: &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}

				return nil
			},
		},
		timeout:   timeout,
		userAgent: defaultUserAgent,
	}
}

// Do performs the request. Transport failures wrap apperrors.ErrTransport,
// and deadline overruns additionally wrap apperrors.ErrTimeout. A non-2xx
// status is not an error at this layer.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", apperrors.ErrTransport, err)
	}

	for k, vals := range r.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classify(ctx, "execute request", err)
	}
	defer resp.Body.Close()

	out := &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
	}

	if r.Sink != nil && out.OK() {
		n, err := io.Copy(r.Sink, resp.Body)
		out.Written = n

		if err != nil {
			return out, classify(ctx, "stream response body", err)
		}

		return out, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySizeBytes))
	if err != nil {
		return out, classify(ctx, "read response body", err)
	}

	out.Body = data

	return out, nil
}

func classify(ctx context.Context, step string, err error) error {
	err = RedactError(err)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isNetTimeout(err) {
		return fmt.Errorf("%w (%w): %s: %w", apperrors.ErrTransport, apperrors.ErrTimeout, step, err)
	}

	return fmt.Errorf("%w: %s: %w", apperrors.ErrTransport, step, err)
}

func isNetTimeout(err error) bool {
	var ne net.Error

	return errors.As(err, &ne) && ne.Timeout()
}

var _ Doer = (*Client)(nil)
