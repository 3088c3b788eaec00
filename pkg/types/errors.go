package types

import "errors"

// ErrorKind is the machine-checkable tag carried by a BusinessError.
type ErrorKind string

// Business error kinds. KindNone is returned by KindOf for errors that are
// not business failures (store faults, cancellation).
const (
	KindNone               ErrorKind = ""
	KindMemberNotFound     ErrorKind = "member_not_found"
	KindGroupNotFound      ErrorKind = "group_not_found"
	KindMembershipNotFound ErrorKind = "membership_not_found"
	KindUnresolvedMembers  ErrorKind = "unresolved_members"
	KindInvalidInput       ErrorKind = "invalid_input"
)

// BusinessError is a terminal, user-visible rule violation. It is never
// retried; the caller has to change its input.
type BusinessError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *BusinessError) Error() string {
	return e.Message
}

// Unwrap exposes the cause attached by WithCause, if any.
func (e *BusinessError) Unwrap() error {
	return e.cause
}

// Is matches any BusinessError of the same kind, so a wrapped or
// detailed copy still satisfies errors.Is against the sentinel.
func (e *BusinessError) Is(target error) bool {
	t, ok := target.(*BusinessError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithCause returns a copy of e that wraps cause.
func (e *BusinessError) WithCause(cause error) *BusinessError {
	return &BusinessError{Kind: e.Kind, Message: e.Message, cause: cause}
}

// Business error sentinels.
var (
	ErrMemberNotFound = &BusinessError{
		Kind:    KindMemberNotFound,
		Message: "the member with the given id was not found",
	}
	ErrGroupNotFound = &BusinessError{
		Kind:    KindGroupNotFound,
		Message: "the group with the given id was not found",
	}
	ErrMembershipNotFound = &BusinessError{
		Kind:    KindMembershipNotFound,
		Message: "the member with the given id is not a member of the group",
	}
	ErrUnresolvedMembers = &BusinessError{
		Kind:    KindUnresolvedMembers,
		Message: "some of the members with the given ids were not found",
	}
)

// NewInvalidInput builds an invalid_input failure with a caller-facing
// message.
func NewInvalidInput(message string) *BusinessError {
	return &BusinessError{Kind: KindInvalidInput, Message: message}
}

// KindOf returns the kind of the first BusinessError in err's chain, or
// KindNone.
func KindOf(err error) ErrorKind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindNone
}
