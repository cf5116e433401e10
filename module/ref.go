// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package module

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
)

var (
	ErrInvalidRef = errors.New("invalid module reference")

	refPattern = regexp.MustCompile(`^[0-9A-Fa-f]{64}$`)
)

// Ref is the content hash identifying a deployed module.
// It is the SHA-256 digest of the module file as uploaded, prefix included.
type Ref ids.ID

// RefOf returns the reference the chain assigns to [source].
func RefOf(source []byte) Ref {
	return Ref(hashing.ComputeHash256Array(source))
}

// ParseRef parses a hex string of length 64.
func ParseRef(s string) (Ref, error) {
	if !refPattern.MatchString(s) {
		return Ref{}, fmt.Errorf("%w: %q is not a hex string of length 64", ErrInvalidRef, s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}
	id, err := ids.ToID(b)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}
	return Ref(id), nil
}

func (r Ref) String() string { return hex.EncodeToString(r[:]) }

func (r Ref) IsZero() bool { return ids.ID(r) == ids.Empty }

func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := ParseRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
