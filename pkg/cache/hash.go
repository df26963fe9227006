package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
)

// Hash returns the hex-encoded SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Digest hashes a sequence of tagged parts. Every part is framed with its
// tag and length, so moving bytes from one part into the next changes the
// result.
type Digest struct {
	h hash.Hash
}

// NewDigest returns an empty digest.
func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

// Add appends one part.
func (d *Digest) Add(tag string, data []byte) *Digest {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(tag)))
	d.h.Write(n[:])
	d.h.Write([]byte(tag))
	binary.BigEndian.PutUint64(n[:], uint64(len(data)))
	d.h.Write(n[:])
	d.h.Write(data)
	return d
}

// Sum returns the hex-encoded digest.
func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// optionKey builds prefix:digest(base, opts) for keys that depend on a
// content hash and a set of options.
func optionKey(prefix, base string, opts any) string {
	enc, _ := json.Marshal(opts)
	return prefix + ":" + NewDigest().Add("base", []byte(base)).Add("opts", enc).Sum()
}
