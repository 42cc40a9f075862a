// Copyright 2025 Arcade Team
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

package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies menu tree failures
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindInvalidOperation
	KindConsistency
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrConsistency means the stored parent graph is corrupt. Not user recoverable.
	ErrConsistency = errors.New("consistency error")
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidOperation:
		return "InvalidOperation"
	case KindConsistency:
		return "ConsistencyError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindInvalidOperation:
		return ErrInvalidOperation
	case KindConsistency:
		return ErrConsistency
	default:
		return nil
	}
}

// MenuError carries the kind and the offending node id.
// errors.Is matches both the kind sentinel and the wrapped cause.
type MenuError struct {
	Kind ErrorKind
	ID   int64
	Msg  string
	Err  error
}

func (e *MenuError) Error() string {
	msg := e.Msg
	if e.ID != 0 {
		msg = fmt.Sprintf("menu %d: %s", e.ID, e.Msg)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *MenuError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of the first MenuError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var me *MenuError
	if errors.As(err, &me) {
		return me.Kind
	}
	return 0
}

func notFound(id int64, err error) error {
	return &MenuError{Kind: KindNotFound, ID: id, Msg: "menu node does not exist", Err: err}
}

func invalidOperation(id int64, format string, args ...any) error {
	return &MenuError{Kind: KindInvalidOperation, ID: id, Msg: fmt.Sprintf(format, args...)}
}

func consistency(id int64, msg string, err error) error {
	return &MenuError{Kind: KindConsistency, ID: id, Msg: msg, Err: err}
}
