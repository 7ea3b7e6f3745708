// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrEmptyName indicates a locked ring was created without a name
	ErrEmptyName = errors.New("locked ring requires a name")
)
