// Copyright 2025 The EmberFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package syserr contains the closed set of error sentinels surfaced at the
// storage core's API boundaries. Each sentinel carries a stable negative
// numeric code; the syscall layer forwards that code to user processes,
// which is the only channel they have for distinguishing error classes.
package syserr

import "fmt"

// Error is an error sentinel with a stable negative code.
type Error struct {
	code int32
	msg  string
}

// New creates a sentinel. The code must be negative and unique within the
// process; collisions are a programming error.
func New(code int32, msg string) *Error {
	if code >= 0 {
		panic(fmt.Sprintf("syserr: non-negative error code %d (%s)", code, msg))
	}
	return &Error{code: code, msg: msg}
}

// Error implements error.
func (e *Error) Error() string { return e.msg }

// Code returns the negative sentinel value for the syscall boundary.
func (e *Error) Code() int32 { return e.code }

// The error taxonomy. Codes are part of the userspace ABI and must not be
// renumbered.
var (
	ErrInvalid     = New(-1, "invalid argument")
	ErrNotFound    = New(-2, "no such file or directory")
	ErrIO          = New(-3, "input/output error")
	ErrBadFD       = New(-4, "bad file descriptor")
	ErrExists      = New(-5, "file exists")
	ErrNotDir      = New(-6, "not a directory")
	ErrIsDir       = New(-7, "is a directory")
	ErrFDExhausted = New(-8, "too many open files")
	ErrNoSpace     = New(-9, "no space left on device")
	ErrAccess      = New(-10, "permission denied")
	ErrNotEmpty    = New(-11, "directory not empty")
	ErrNameTooLong = New(-12, "path name too long")
	ErrFileTooBig  = New(-13, "file too large")

	// Filesystem-specific classes.
	ErrBadMagic   = New(-20, "bad filesystem magic")
	ErrCorrupt    = New(-21, "filesystem structure corrupted")
	ErrNoBlocks   = New(-22, "no free blocks")
	ErrNoInodes   = New(-23, "no free inodes")
	ErrNotMounted = New(-24, "no filesystem mounted")
)

// Code returns err's sentinel code, or the generic I/O failure code when err
// is not a sentinel. A nil err maps to 0.
func Code(err error) int32 {
	if err == nil {
		return 0
	}
	if e, ok := err.(*Error); ok {
		return e.code
	}
	return ErrIO.code
}
