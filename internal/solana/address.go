// Package solana provides Solana-specific helpers for validating token
// addresses reported by market-data providers.
package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IsValidAddress reports whether s is a well-formed Solana address:
// base58, decoding to exactly 32 bytes.
func IsValidAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// IsValidMint reports whether s looks like a token mint address. Mint
// accounts are regular ed25519 keypairs, so the decoded bytes must be a
// valid curve point. Providers occasionally echo PDAs or garbage in the
// token-address field; those are rejected here.
func IsValidMint(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != 32 {
		return false
	}
	return isOnCurve(decoded)
}

// isOnCurve checks whether a 32-byte value is a valid ed25519 curve point.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
