package account

import (
	"crypto/md5"
	"encoding/hex"
)

// CredentialCodec turns a plaintext password into the stored credential:
// the hex digest of the process-wide salt concatenated with the plaintext.
// The transform is deterministic so authentication can look accounts up by
// exact credential equality, and it is never reversed.
//
// The single shared salt (and the digest choice) are kept for compatibility
// with existing stored credentials. The upgrade path is a per-account random
// salt with a memory-hard hash, which would require a credential migration.
type CredentialCodec struct {
	salt string
}

// NewCredentialCodec returns a codec bound to the given salt.
func NewCredentialCodec(salt string) *CredentialCodec {
	return &CredentialCodec{salt: salt}
}

// Encode produces the stored credential for a plaintext password.
func (c *CredentialCodec) Encode(plaintext string) string {
	sum := md5.Sum([]byte(c.salt + plaintext))
	return hex.EncodeToString(sum[:])
}
