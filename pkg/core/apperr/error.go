// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     apperr
// Description: Coded error type with operation context and cause chaining
// Author:      Mike Stoffels
// Created:     2026-01-12
// License:     MIT
// ============================================================================

package apperr

import (
	"errors"
	"strings"
)

// Error is an error carrying a Code, the failing operation and an optional cause.
// Two *Error values match under errors.Is when their codes are equal, so package
// sentinels like mariadb.ErrEmptyStatement can be compared against wrapped errors.
type Error struct {
	code Code
	op   string
	msg  string
	err  error
}

// New creates an error with the given code and message
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Wrap attaches a code and operation to err. A nil err yields nil.
func Wrap(err error, code Code, op string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, op: op, err: err}
}

// WithOp returns a copy of e bound to an operation name
func (e *Error) WithOp(op string) *Error {
	c := *e
	c.op = op
	return &c
}

// WithCause returns a copy of e wrapping cause
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.err = cause
	return &c
}

// Code returns the error code
func (e *Error) Code() Code {
	return e.code
}

// Op returns the operation name, if any
func (e *Error) Op() string {
	return e.op
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.op != "" {
		b.WriteString(e.op)
		b.WriteString(": ")
	}
	switch {
	case e.msg != "" && e.err != nil:
		b.WriteString(e.msg)
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	case e.msg != "":
		b.WriteString(e.msg)
	case e.err != nil:
		b.WriteString(e.err.Error())
	default:
		b.WriteString(strings.ToLower(strings.ReplaceAll(string(e.code), "_", " ")))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// GetCode returns the code of the first *Error in err's chain, or CodeUnknown
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return CodeUnknown
}

// HasCode reports whether any *Error in err's chain carries code
func HasCode(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.code == code {
			return true
		}
		err = e.err
	}
	return false
}
