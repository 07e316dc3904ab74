// Package idhash computes deterministic identifiers so that repeated runs
// over the same observations produce the same IDs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ComputeSignalID computes a deterministic signal id using SHA256.
// Formula: SHA256(chain|token_address|type|platform|observed_at)
// Returns hex-encoded hash (64 characters).
func ComputeSignalID(
	chain string,
	tokenAddress string,
	signalType string,
	platform string,
	observedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		chain,
		tokenAddress,
		signalType,
		platform,
		observedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeMergedSignalID computes the id minted for a merged signal group.
// Member IDs are sorted before hashing so the result does not depend on
// group input order.
// Formula: SHA256(chain|token_address|sorted(member_ids...))
func ComputeMergedSignalID(chain, tokenAddress string, memberIDs []string) string {
	sorted := make([]string, len(memberIDs))
	copy(sorted, memberIDs)
	sort.Strings(sorted)

	data := fmt.Sprintf("%s|%s|%s", chain, tokenAddress, strings.Join(sorted, "|"))

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
