package cache

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"iracgo/internal/models"
)

// KeyBuilder derives cache keys from everything that shapes a summary.
// Keys are keyed with the server secret so they cannot be predicted from public inputs.
type KeyBuilder struct {
	secret []byte
}

func NewKeyBuilder(secret string) *KeyBuilder {
	return &KeyBuilder{secret: []byte(secret)}
}

// Fingerprint returns 64 hex characters identifying (filename, role, case, docket, document bytes).
// Roles are folded to their canonical form first.
func (k *KeyBuilder) Fingerprint(filename string, req models.CaseRequest, content []byte) string {
	sum := sha256.Sum256(content)

	mac := hmac.New(sha256.New, k.secret)
	writeField(mac, filename)
	writeField(mac, string(req.Role.Canonical()))
	writeField(mac, req.CaseName)
	writeField(mac, req.DocketNumber)
	mac.Write(sum[:])
	return hex.EncodeToString(mac.Sum(nil))
}

// writeField length-prefixes s so adjacent fields cannot run into each other.
func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}
