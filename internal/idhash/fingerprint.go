package idhash

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"channel-trust-lab/internal/domain"
)

// ComputeFingerprint hashes every output field of a score result.
// Formula: base58(SHA256(json(result with empty fingerprint)))
// encoding/json emits struct fields in declaration order and map keys sorted,
// so equal results always hash equally.
func ComputeFingerprint(r *domain.ScoreResult) (string, error) {
	if r == nil {
		return "", fmt.Errorf("fingerprint: nil result")
	}
	c := *r
	c.Fingerprint = ""

	data, err := json.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("fingerprint: encode result: %w", err)
	}

	hash := sha256.Sum256(data)
	return base58.Encode(hash[:]), nil
}
