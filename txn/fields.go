// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ava-labs/contracttools/module"
)

// DefaultMaxEnergy is the execution energy offered when the user sets none.
const DefaultMaxEnergy uint64 = 30000

// ParseUint parses a non-negative integer form field. An empty field yields [def].
func ParseUint(field, raw string, def uint64) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", ErrValidation, field, raw)
	}
	return v, nil
}

// ParseModuleRef parses a required module reference field.
func ParseModuleRef(raw string) (module.Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return module.Ref{}, fmt.Errorf("%w: set module reference", ErrValidation)
	}
	ref, err := module.ParseRef(raw)
	if err != nil {
		return module.Ref{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return ref, nil
}
