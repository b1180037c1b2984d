package payments

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"time"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

// NewUniqueID returns a 12-hex-char payment identifier: a sha256 of the
// current wall clock concatenated with 16 bytes of secure randomness,
// truncated. Short enough to live in a cell, collision odds negligible at
// this volume.
func NewUniqueID() string {
	buf := make([]byte, 8+16)
	binary.BigEndian.PutUint64(buf[:8], uint64(time.Now().UnixNano()))
	_, _ = rand.Read(buf[8:])
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:6])
}

// ValidID reports whether id has the canonical 12-hex form.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
