// Package errors defines the error taxonomy shared by the relay pipeline.
//
// Every pipeline step returns either a value or an *Error carrying a Kind.
// Kinds are localized only at the orchestrator boundary; errors travelling
// through the pipeline never contain user-facing text.
//
// Naming conventions:
//   - Exported sentinels (Err*): use with errors.Is
//   - Use New / Wrap to attach a Kind and the operation that failed
package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure classes the relay reports to users.
type Kind int

const (
	// KindUnclassified covers anything the pipeline did not anticipate.
	KindUnclassified Kind = iota
	// KindAcquisition means the image download failed.
	KindAcquisition
	// KindExtraction means the OCR engine failed.
	KindExtraction
	// KindEmptyText means OCR succeeded but found no text.
	KindEmptyText
	// KindCompletion means the provider answered with a bad status or an unusable body.
	KindCompletion
	// KindConnection means the provider could not be reached or timed out.
	KindConnection
	// KindUnsupportedInput means the message type is not handled (voice).
	KindUnsupportedInput
)

// Kinds lists every Kind; catalog validation iterates over it.
var Kinds = []Kind{
	KindUnclassified,
	KindAcquisition,
	KindExtraction,
	KindEmptyText,
	KindCompletion,
	KindConnection,
	KindUnsupportedInput,
}

var kindNames = map[Kind]string{
	KindUnclassified:     "unclassified",
	KindAcquisition:      "acquisition",
	KindExtraction:       "extraction",
	KindEmptyText:        "empty_text",
	KindCompletion:       "completion",
	KindConnection:       "connection",
	KindUnsupportedInput: "unsupported_input",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Transport and response errors.
var (
	// ErrTransport indicates the request never produced an HTTP response.
	ErrTransport = errors.New("transport failure")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrHTTPStatus indicates a non-2xx HTTP response.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrEmptyResponse indicates a response without a usable payload.
	ErrEmptyResponse = errors.New("empty response")

	// ErrMalformedResponse indicates a response body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// Input errors.
var (
	// ErrNoText indicates OCR returned only whitespace.
	ErrNoText = errors.New("no text recognized")

	// ErrVoiceUnsupported indicates a voice message was received.
	ErrVoiceUnsupported = errors.New("voice messages are not supported")

	// ErrNoPhoto indicates a photo message without any size variants.
	ErrNoPhoto = errors.New("photo message has no variants")
)

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	// Op names the step that failed, e.g. "media.acquire".
	Op string
	// Status is the HTTP status when the failure came from a response.
	Status int
	// Body is the raw response body for diagnosis. Never shown to users.
	Body string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error for op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithResponse attaches the HTTP status and raw body.
func (e *Error) WithResponse(status int, body string) *Error {
	e.Status = status
	e.Body = body

	return e
}

// KindOf returns the Kind of the first *Error in err's chain,
// or KindUnclassified when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnclassified
}
