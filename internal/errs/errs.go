/*
 * squeaker: a content-addressed Smalltalk image build tool
 * Copyright (C) 2026 The Squeaker Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package errs classifies squeaker's fatal, user-visible error kinds, per
// the error handling design: every surfaced error carries one of a small
// set of kinds so the CLI can report it uniformly and tests can assert on
// it without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies one of squeaker's user-visible error categories.
type Kind string

// The error kinds from the error handling design.
const (
	RecipeParse     Kind = "recipe-parse"
	FetchFailed     Kind = "fetch-failed"
	ArchiveMalformed Kind = "archive-malformed"
	CacheMiss       Kind = "cache-miss"
	AmbiguousPrefix Kind = "ambiguous-prefix"
	ResourceMissing Kind = "resource-missing"
	VMFailure       Kind = "vm-failure"
	Internal        Kind = "internal"
)

// Error is a kinded, wrapped error.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.err
}

// New creates a kinded error with the given message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// Newf creates a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and a message to an existing error.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: msg, err: err}
}

// Wrapf attaches a kind and a formatted message to an existing error.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the Kind attached to err, or "" if err (or nothing in its
// chain) carries one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err (or something in its chain) has the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
