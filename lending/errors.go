package lending

import "errors"

type ErrCode string

const (
	CodeUnauthorized        ErrCode = "UNAUTHORIZED"
	CodeForbidden           ErrCode = "FORBIDDEN"
	CodeNotFound            ErrCode = "NOT_FOUND"
	CodeItemUnavailable     ErrCode = "ITEM_UNAVAILABLE"
	CodeAlreadyProcessed    ErrCode = "ALREADY_PROCESSED"
	CodeReturnNotApplicable ErrCode = "RETURN_NOT_APPLICABLE"
	CodeInvalidTransition   ErrCode = "INVALID_TRANSITION"
	CodeItemInUse           ErrCode = "ITEM_IN_USE"
	CodeInvalidInput        ErrCode = "INVALID_INPUT"
)

// Error is a domain failure. Every Error aborts its operation with no side effects.
type Error struct {
	Code ErrCode
	msg  string
	// parent lets a narrower error also match a broader one via errors.Is.
	parent *Error
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	for cur := e; cur != nil; cur = cur.parent {
		if cur == t {
			return true
		}
	}
	return false
}

var (
	ErrUnauthorized      = &Error{Code: CodeUnauthorized, msg: "unauthorized"}
	ErrForbidden         = &Error{Code: CodeForbidden, msg: "forbidden"}
	ErrItemNotFound      = &Error{Code: CodeNotFound, msg: "item not found"}
	ErrRequestNotFound   = &Error{Code: CodeNotFound, msg: "request not found"}
	ErrItemUnavailable   = &Error{Code: CodeItemUnavailable, msg: "item not available"}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, msg: "invalid status transition"}

	ErrAlreadyProcessed    = &Error{Code: CodeAlreadyProcessed, msg: "request already processed", parent: ErrInvalidTransition}
	ErrReturnNotApplicable = &Error{Code: CodeReturnNotApplicable, msg: "return not applicable", parent: ErrInvalidTransition}

	ErrItemInUse    = &Error{Code: CodeItemInUse, msg: "item has outstanding requests"}
	ErrInvalidInput = &Error{Code: CodeInvalidInput, msg: "invalid input"}
)

// InvalidInput returns an INVALID_INPUT error carrying msg.
func InvalidInput(msg string) error {
	return &Error{Code: CodeInvalidInput, msg: msg, parent: ErrInvalidInput}
}

// Code extracts the domain code from err, or "" for infrastructure errors.
func Code(err error) ErrCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
