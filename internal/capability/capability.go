// Package capability defines the uniform result contract shared by every
// external capability invoker. Failures are returned as data and never cross
// the dispatch boundary as a raised fault.
package capability

import "fmt"

type ErrorKind string

const (
	KindInvalidInput  ErrorKind = "invalid_input"
	KindConfiguration ErrorKind = "configuration"
	KindProviderError ErrorKind = "provider_error"
	KindEmptyResult   ErrorKind = "empty_result"
	KindDecodeError   ErrorKind = "decode_error"
	KindUnexpected    ErrorKind = "unexpected"
)

// Error is the failure arm of a capability result. The message is what the
// caller may surface to the user; provider-reported messages are preserved
// verbatim.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// EmailReceipt is the success payload of an email send. ID may be empty when
// the provider accepted the message without returning a confirmation id; the
// dispatch layer reports that as a distinct partial-success outcome.
type EmailReceipt struct {
	ID string
}

// BinaryImage is the success payload of an image generation: decoded bytes
// plus the headers the wire layer should serve them with.
type BinaryImage struct {
	Bytes        []byte
	ContentType  string
	CacheControl string
}
