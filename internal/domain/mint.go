package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// MintAddressLen is the decoded length of a Solana account address.
const MintAddressLen = 32

// ValidateMint checks that s is a base58 Solana account address.
func ValidateMint(s string) error {
	decoded, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode mint %q: %w", s, err)
	}
	if len(decoded) != MintAddressLen {
		return fmt.Errorf("mint %q: decoded length %d, want %d", s, len(decoded), MintAddressLen)
	}
	return nil
}
