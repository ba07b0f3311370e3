package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure reported to the caller.
type Kind string

const (
	KindAuth                Kind = "auth_error"
	KindRegistration        Kind = "registration_error"
	KindLogout              Kind = "logout_error"
	KindSync                Kind = "sync_error"
	KindPersistenceDegraded Kind = "persistence_degraded"
	KindDuplicateCategory   Kind = "duplicate_category"
	KindCategoryInUse       Kind = "category_in_use"
	KindCategoryNotFound    Kind = "category_not_found"
	KindInvalidCategory     Kind = "invalid_category"
	KindInvalidAmount       Kind = "invalid_amount"
	KindInvalidDate         Kind = "invalid_date"
	KindExpenseNotFound     Kind = "expense_not_found"
	KindNotLoggedIn         Kind = "not_logged_in"
	KindProfile             Kind = "profile_error"
	KindPassword            Kind = "password_error"
	KindAccount             Kind = "account_error"
)

// Error is the error type returned by rules and the reconciliation engine.
// Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError builds an error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds an error of the given kind around a cause.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

var (
	ErrAuth              = NewError(KindAuth, "invalid email or password")
	ErrRegistration      = NewError(KindRegistration, "registration failed")
	ErrWeakPassword      = NewError(KindRegistration, "password must be at least 6 characters")
	ErrLogout            = NewError(KindLogout, "logout failed")
	ErrSync              = NewError(KindSync, "sync failed")
	ErrPersistence       = NewError(KindPersistenceDegraded, "saved locally only")
	ErrDuplicateCategory = NewError(KindDuplicateCategory, "category already exists")
	ErrCategoryInUse     = NewError(KindCategoryInUse, "category is used by at least one expense")
	ErrCategoryNotFound  = NewError(KindCategoryNotFound, "category not found")
	ErrInvalidCategory   = NewError(KindInvalidCategory, "category name is required")
	ErrInvalidAmount     = NewError(KindInvalidAmount, "amount must be greater than 0")
	ErrInvalidDate       = NewError(KindInvalidDate, "expense date is required")
	ErrExpenseNotFound   = NewError(KindExpenseNotFound, "expense not found")
	ErrNotLoggedIn       = NewError(KindNotLoggedIn, "no user is logged in")
	ErrProfile           = NewError(KindProfile, "profile update failed")
	ErrPassword          = NewError(KindPassword, "password change failed")
	ErrPasswordMismatch  = NewError(KindPassword, "password confirmation does not match")
	ErrAccount           = NewError(KindAccount, "account operation failed")
)

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Result is the success flag + message descriptor handed to presentation
// layers.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ResultOf converts err into a Result; okMessage is used on success.
func ResultOf(err error, okMessage string) Result {
	if err == nil {
		return Result{Success: true, Message: okMessage}
	}
	var e *Error
	if errors.As(err, &e) {
		return Result{Success: false, Message: e.Message}
	}
	return Result{Success: false, Message: err.Error()}
}
