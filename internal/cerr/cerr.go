// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package cerr provides a string type for declaring sentinel errors as
// constants.
package cerr

import "fmt"

// Error is a constant error value. Two Error values with the same text are
// equal, so errors.Is matches them through any number of wraps.
type Error string

func (e Error) Error() string {
	return string(e)
}

// Detail returns an error that wraps e and appends a formatted explanation.
func (e Error) Detail(format string, args ...any) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, args...))
}
