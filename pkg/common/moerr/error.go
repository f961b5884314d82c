// Copyright 2021 - 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package moerr carries the code-based error values shared by this
// module. The code space follows the main tree's grouping; only the
// codes the allocator surfaces are defined here.
package moerr

import "fmt"

const (
	Ok uint16 = 0

	// Group 1: internal errors
	ErrStart    uint16 = 20100
	ErrInternal uint16 = 20101
	ErrOOM      uint16 = 20103

	// Group 3: invalid input
	ErrBadConfig    uint16 = 20300
	ErrInvalidInput uint16 = 20301
)

// Error is an error value carrying one of the codes above.
type Error struct {
	code    uint16
	message string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Code() uint16 {
	return e.code
}

func newError(code uint16, message string) *Error {
	return &Error{code: code, message: message}
}

func NewInternal(msg string, args ...any) *Error {
	return newError(ErrInternal, "internal error: "+fmt.Sprintf(msg, args...))
}

func NewOOM() *Error {
	return newError(ErrOOM, "out of memory")
}

func NewBadConfig(msg string, args ...any) *Error {
	return newError(ErrBadConfig, "invalid configuration: "+fmt.Sprintf(msg, args...))
}

func NewInvalidInput(msg string, args ...any) *Error {
	return newError(ErrInvalidInput, "invalid input: "+fmt.Sprintf(msg, args...))
}

// IsMoErrCode reports whether err is a moerr with the given code.
func IsMoErrCode(err error, code uint16) bool {
	if err == nil {
		return code == Ok
	}
	me, ok := err.(*Error)
	if !ok {
		return false
	}
	return me.code == code
}
