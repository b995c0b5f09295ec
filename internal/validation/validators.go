// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

// booleanValidator implements Validator.
type booleanValidator struct {
	boolCheck  bool
	errMessage string
}

// NewBooleanValidator creates a new boolean validator that returns an error message if condition is false
// This validator will come handy when dealing with conditional validation
func NewBooleanValidator(boolCheck bool, errMessage string) Validator {
	return &booleanValidator{boolCheck: boolCheck, errMessage: errMessage}
}

// Validate returns an error if boolean check is false
func (v booleanValidator) Validate() error {
	if !v.boolCheck {
		return errors.New(v.errMessage)
	}
	return nil
}

// durationValidator checks that a duration is strictly positive
type durationValidator struct {
	field string
	value time.Duration
	err   error
}

var _ Validator = (*durationValidator)(nil)

// NewPositiveDurationValidator returns a validator failing with err when value is not strictly positive.
func NewPositiveDurationValidator(field string, value time.Duration, err error) Validator {
	return &durationValidator{field: field, value: value, err: err}
}

// Validate executes the validation
func (v *durationValidator) Validate() error {
	if v.value > 0 {
		return nil
	}
	return violation(v.err, "the [%s] must be positive, got %s", v.field, v.value)
}

// rangeValidator checks that an integer lies within [min, max]
type rangeValidator struct {
	field    string
	value    int
	min, max int
	err      error
}

var _ Validator = (*rangeValidator)(nil)

// NewRangeValidator returns a validator failing with err when value lies outside [min, max].
func NewRangeValidator(field string, value, min, max int, err error) Validator {
	return &rangeValidator{field: field, value: value, min: min, max: max, err: err}
}

// Validate executes the validation
func (v *rangeValidator) Validate() error {
	if v.value >= v.min && v.value <= v.max {
		return nil
	}
	return violation(v.err, "the [%s] must be within [%d, %d], got %d", v.field, v.min, v.max, v.value)
}

// notNilValidator checks that a value is set
type notNilValidator struct {
	field string
	value any
	err   error
}

var _ Validator = (*notNilValidator)(nil)

// NewNotNilValidator returns a validator failing with err when value is nil,
// including typed nil pointers, maps, slices, channels and funcs.
func NewNotNilValidator(field string, value any, err error) Validator {
	return &notNilValidator{field: field, value: value, err: err}
}

// Validate executes the validation
func (v *notNilValidator) Validate() error {
	if !isNil(v.value) {
		return nil
	}
	return violation(v.err, "the [%s] is required", v.field)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func violation(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		return errors.New(msg)
	}
	return fmt.Errorf("%w: %s", err, msg)
}
