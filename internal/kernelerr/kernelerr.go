// Package kernelerr defines the normalized error taxonomy the orchestrator
// classifies every failure into: one small sum of codes, one structured
// error type carrying the code plus the original cause, and
// errors.Is/errors.As support so callers can branch on kind without string
// matching.
package kernelerr

import "fmt"

// Kind is one entry in the normalized failure taxonomy.
type Kind string

const (
	NetworkError          Kind = "network_error"
	RateLimit             Kind = "rate_limit"
	ServerError           Kind = "server_error"
	ClientError           Kind = "client_error"
	AuthError             Kind = "auth_error"
	Timeout               Kind = "timeout"
	Cancelled             Kind = "cancelled"
	ZeroTokens            Kind = "zero_tokens"
	GuardrailViolation    Kind = "guardrail_violation"
	Incomplete            Kind = "incomplete"
	FatalGuardrail        Kind = "fatal_guardrail"
	NoAdapter             Kind = "no_adapter"
	AmbiguousAdapter      Kind = "ambiguous_adapter"
	DuplicateAdapter      Kind = "duplicate_adapter"
	ConsensusTimeout      Kind = "consensus_timeout"
	AllStreamsFailed      Kind = "all_streams_failed"
	SchemaValidation      Kind = "schema_validation"
	AllFallbacksExhausted Kind = "all_fallbacks_exhausted"
	Unknown               Kind = "unknown"
)

// retryableKinds is the set of kinds that are ever worth retrying,
// independent of whether a particular session's configured retryOn set
// includes them. A kind outside this set is always fatal or terminal.
var retryableKinds = map[Kind]bool{
	NetworkError:       true,
	RateLimit:          true,
	ServerError:        true,
	Timeout:            true,
	GuardrailViolation: true,
	ZeroTokens:         true,
	Incomplete:         true,
}

// Retryable reports whether k is ever eligible for retry classification.
// It does not consult a session's configured retryOn set — that's the
// orchestrator's job — it only rules out kinds that can never be retried
// (auth errors, cancellation, fatal guardrails, adapter resolution
// failures).
func Retryable(k Kind) bool {
	return retryableKinds[k]
}

// Error is the structured error returned for any terminal session failure
// and any classified producer/guardrail/adapter error along the way.
type Error struct {
	Kind        Kind
	Message     string
	Recoverable bool
	StatusCode  int
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is to match Errors by Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind.
func New(k Kind, message string) *Error {
	return &Error{Kind: k, Message: message}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(k Kind, message string, cause error) *Error {
	return &Error{Kind: k, Message: message, Cause: cause}
}

// Sentinel values for errors.Is comparisons against a bare kind.
var (
	ErrNetworkError       = &Error{Kind: NetworkError}
	ErrRateLimit          = &Error{Kind: RateLimit}
	ErrServerError        = &Error{Kind: ServerError}
	ErrClientError        = &Error{Kind: ClientError}
	ErrAuthError          = &Error{Kind: AuthError}
	ErrTimeout            = &Error{Kind: Timeout}
	ErrCancelled          = &Error{Kind: Cancelled}
	ErrZeroTokens         = &Error{Kind: ZeroTokens}
	ErrGuardrailViolation = &Error{Kind: GuardrailViolation}
	ErrIncomplete         = &Error{Kind: Incomplete}
	ErrFatalGuardrail     = &Error{Kind: FatalGuardrail}
	ErrNoAdapter          = &Error{Kind: NoAdapter}
	ErrAmbiguousAdapter   = &Error{Kind: AmbiguousAdapter}
	ErrDuplicateAdapter   = &Error{Kind: DuplicateAdapter}
	ErrConsensusTimeout   = &Error{Kind: ConsensusTimeout}
	ErrAllStreamsFailed   = &Error{Kind: AllStreamsFailed}
	ErrSchemaValidation   = &Error{Kind: SchemaValidation}
)

// ClassifyHTTPStatus maps an HTTP status code to a taxonomy Kind,
// provider-agnostic so any adapter can call it directly, or fall back to
// its own finer-grained classifier first.
func ClassifyHTTPStatus(statusCode int) Kind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return AuthError
	case statusCode == 429:
		return RateLimit
	case statusCode == 408 || statusCode == 504:
		return Timeout
	case statusCode >= 500:
		return ServerError
	case statusCode >= 400:
		return ClientError
	default:
		return Unknown
	}
}
