// Package streamerrors defines the error kinds shared across the streaming
// pipeline: source, encoder, muxer, sink, endpoint, output and pipeline all
// return these instead of ad hoc strings so callers can discriminate with
// errors.Is/errors.As regardless of which component raised them.
package streamerrors

import "errors"

// Kind classifies the sentinel errors below so callers can switch on a
// stable discriminator without string matching.
type Kind int

const (
	// KindNotConfigured means a component was used before configure/open.
	KindNotConfigured Kind = iota
	// KindInvalidState means the operation is illegal in the current state.
	KindInvalidState
	// KindIncompatibleConfig means a codec config violates a source-sharing
	// compatibility rule.
	KindIncompatibleConfig
	// KindUnsupportedContainer means the endpoint cannot carry the
	// requested container.
	KindUnsupportedContainer
	// KindUnsupportedCodec means the endpoint cannot carry the requested
	// codec.
	KindUnsupportedCodec
	// KindCodecError wraps an opaque error surfaced from an encoder.
	KindCodecError
	// KindIOError wraps a sink network/file error.
	KindIOError
	// KindPermissionDenied means a capture device refused access.
	KindPermissionDenied
	// KindCancelled means an awaited operation was cancelled.
	KindCancelled
	// KindClosed distinguishes an asynchronous close from a hard failure.
	KindClosed
	// KindNoOutput means a pipeline was started with no registered output.
	KindNoOutput
)

func (k Kind) String() string {
	switch k {
	case KindNotConfigured:
		return "not_configured"
	case KindInvalidState:
		return "invalid_state"
	case KindIncompatibleConfig:
		return "incompatible_config"
	case KindUnsupportedContainer:
		return "unsupported_container"
	case KindUnsupportedCodec:
		return "unsupported_codec"
	case KindCodecError:
		return "codec_error"
	case KindIOError:
		return "io_error"
	case KindPermissionDenied:
		return "permission_denied"
	case KindCancelled:
		return "cancelled"
	case KindClosed:
		return "closed"
	case KindNoOutput:
		return "no_output"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every package in this
// module. Component is the package/type that raised it (e.g. "encoder",
// "flv.Muxer"); Op is the operation being performed (e.g. "configure").
type Error struct {
	Kind      Kind
	Component string
	Op        string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Component + ": " + e.Op + ": " + e.Kind.String()
	}
	return e.Component + ": " + e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, streamerrors.KindX) work by comparing Kind values
// wrapped as sentinel errors via New(kind, "", "", nil).
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Kind == e.Kind
	}
	return false
}

// New builds an *Error. err may be nil for a bare sentinel.
func New(kind Kind, component, op string, err error) *Error {
	return &Error{Kind: kind, Component: component, Op: op, Err: err}
}

// Sentinel returns a comparable sentinel for the given kind, suitable for
// errors.Is(err, streamerrors.Sentinel(streamerrors.KindClosed)).
func Sentinel(kind Kind) error {
	return &Error{Kind: kind}
}

// KindOf extracts the Kind of err, if it (or something it wraps) is an
// *Error produced by this package.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
