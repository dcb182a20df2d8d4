//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package execution

import (
	"errors"
	"fmt"
)

// ErrKeyMissing is the sentinel under every MissingKeyError; use errors.Is
// to detect the kind without caring about the key.
var ErrKeyMissing = errors.New("execution context: required key missing")

// MissingKeyError reports a Require* call for a key that is absent from the
// execution context.
type MissingKeyError struct {
	Key string
}

// Error implements the error interface.
func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("execution context: required key %q missing", e.Key)
}

// Unwrap makes errors.Is(err, ErrKeyMissing) hold.
func (e *MissingKeyError) Unwrap() error {
	return ErrKeyMissing
}
