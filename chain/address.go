// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"bytes"
	"errors"

	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/mr-tron/base58"
)

const (
	accountAddressVersion = 1
	accountAddressLen     = 32
	checksumLen           = 4
)

var ErrInvalidAddress = errors.New("invalid account address")

// AccountAddress is the 32 byte account identifier. Its text form is base58
// with a version byte and a double SHA-256 checksum.
type AccountAddress [accountAddressLen]byte

// ParseAccountAddress decodes the base58 text form of an account address.
func ParseAccountAddress(s string) (AccountAddress, error) {
	var addr AccountAddress
	raw, err := base58.Decode(s)
	if err != nil {
		return addr, ErrInvalidAddress
	}
	if len(raw) != 1+accountAddressLen+checksumLen || raw[0] != accountAddressVersion {
		return addr, ErrInvalidAddress
	}
	body, sum := raw[:1+accountAddressLen], raw[1+accountAddressLen:]
	if !bytes.Equal(sum, addressChecksum(body)) {
		return addr, ErrInvalidAddress
	}
	copy(addr[:], body[1:])
	return addr, nil
}

func (a AccountAddress) String() string {
	body := make([]byte, 0, 1+accountAddressLen+checksumLen)
	body = append(body, accountAddressVersion)
	body = append(body, a[:]...)
	return base58.Encode(append(body, addressChecksum(body)...))
}

func addressChecksum(b []byte) []byte {
	return hashing.ComputeHash256(hashing.ComputeHash256(b))[:checksumLen]
}
