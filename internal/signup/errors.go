package signup

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Validation gate failures, in the order they are checked.
var (
	ErrMissingName        = errors.New("please enter your full name")
	ErrUnderage           = errors.New("applicant is under the minimum age")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrTermsNotAccepted   = errors.New("please agree to the terms and conditions")
	ErrInvalidField       = errors.New("invalid field")
	ErrInvalidDateOfBirth = errors.New("invalid date of birth")
)

// Profile picture intake failures.
var (
	ErrPictureTooLarge        = errors.New("profile picture too large")
	ErrPictureUnsupportedType = errors.New("unsupported profile picture type")
)

// Submission failures.
var (
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrAlreadySubmitted     = errors.New("signup already submitted")
	ErrSubmissionFailed     = errors.New("signup failed")
)

// FieldError reports a field that violates its input constraint.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidField
}

// UnderageError carries the configured minimum age.
type UnderageError struct {
	Age    int
	MinAge int
}

func (e *UnderageError) Error() string {
	return fmt.Sprintf("age %d is below the minimum of %d", e.Age, e.MinAge)
}

func (e *UnderageError) Unwrap() error {
	return ErrUnderage
}

// PictureTooLargeError carries the size limit that was exceeded. Size is
// zero when the upload was cut off before its end.
type PictureTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PictureTooLargeError) Error() string {
	if e.Size <= 0 {
		return "profile picture exceeds limit of " + humanize.IBytes(uint64(e.Limit))
	}
	return fmt.Sprintf("profile picture is %s, limit is %s", humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Limit)))
}

func (e *PictureTooLargeError) Unwrap() error {
	return ErrPictureTooLarge
}

// SubmissionError wraps a registration backend failure.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return "signup failed: " + e.Err.Error()
}

func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmissionFailed
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing toast text for err.
func Message(err error) string {
	var (
		fieldErr   *FieldError
		underage   *UnderageError
		tooLarge   *PictureTooLargeError
		submission *SubmissionError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingName):
		return "Please enter your full name"
	case errors.As(err, &underage):
		return fmt.Sprintf("You must be at least %d years old to register", underage.MinAge)
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 8 characters long"
	case errors.Is(err, ErrTermsNotAccepted):
		return "Please agree to the Terms and Conditions"
	case errors.As(err, &fieldErr):
		return fieldErr.Message
	case errors.Is(err, ErrInvalidDateOfBirth):
		return "Please enter a valid date of birth"
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("Profile picture should be less than %s", humanize.IBytes(uint64(tooLarge.Limit)))
	case errors.Is(err, ErrPictureUnsupportedType):
		return "Only JPG and PNG files are allowed"
	case errors.Is(err, ErrSubmissionInProgress):
		return "Your signup is already being submitted"
	case errors.Is(err, ErrAlreadySubmitted):
		return "This signup has already been submitted"
	case errors.As(err, &submission):
		return "Signup failed: " + submission.Err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "Signup timed out, please try again"
	default:
		return "Something went wrong, please try again"
	}
}

// Rule names the validation rule err violated, for metrics.
func Rule(err error) string {
	switch {
	case errors.Is(err, ErrMissingName):
		return "missing_name"
	case errors.Is(err, ErrUnderage):
		return "underage"
	case errors.Is(err, ErrPasswordMismatch):
		return "password_mismatch"
	case errors.Is(err, ErrPasswordTooShort):
		return "password_too_short"
	case errors.Is(err, ErrTermsNotAccepted):
		return "terms_not_accepted"
	case errors.Is(err, ErrInvalidField):
		return "invalid_field"
	default:
		return "unknown"
	}
}
