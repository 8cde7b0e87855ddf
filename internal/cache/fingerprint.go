// Package cache is the resolution cache: canonical request
// fingerprints, confidence-adaptive TTLs, a sharded concurrent store,
// and compressed warm snapshots.
package cache

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fields is the semantically relevant subset of a request that may
// influence its cache key. URI must already be normalized
// (paths.NormalizeURI) so equivalent spellings collapse to one key.
// Volatile fields — request id, timestamps — have no place here.
type Fields struct {
	Identifier         string
	URI                string
	Line               int
	Character          int
	MaxResults         int
	IncludeDeclaration bool
	NewName            string
	DryRun             bool
}

// Fingerprint derives the canonical cache key for an operation and
// request. The normalized field set is serialized as key:value parts in
// fixed sorted order and hashed with BLAKE2b-256. The key keeps the
// operation and normalized URI visible alongside the hash so pattern
// invalidation can match on them: "<op>|<uri>|<hash>".
func Fingerprint(operation string, f Fields) string {
	parts := []string{
		"op:" + operation,
		"identifier:" + f.Identifier,
		"uri:" + f.URI,
		fmt.Sprintf("line:%d", f.Line),
		fmt.Sprintf("character:%d", f.Character),
		fmt.Sprintf("maxResults:%d", f.MaxResults),
		fmt.Sprintf("includeDeclaration:%t", f.IncludeDeclaration),
	}
	if f.NewName != "" {
		parts = append(parts,
			"newName:"+f.NewName,
			fmt.Sprintf("dryRun:%t", f.DryRun),
		)
	}

	sort.Strings(parts)
	sum := blake2b.Sum256([]byte(strings.Join(parts, "|")))
	return operation + "|" + f.URI + "|" + hex.EncodeToString(sum[:])
}

// KeyURI extracts the normalized-URI component of a fingerprint key.
func KeyURI(key string) string {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}
