// Copyright © 2024 tss-cmp Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commitment implements the hash-commitment (commit/decommit) pair
// every round-1 message in keygen and refresh is wrapped in, so a party
// cannot choose its contribution after seeing everyone else's (spec.md §4.1,
// §4.3-§4.4); presign does not use it. Grounded on crypto/commitment/hash.go, with the
// protobuf-Any wrapping dropped in favor of a flat byte-slice digest and
// SHA-512 standing in for the teacher's blake2b/SHA3 family, both of which
// resist length-extension.
package commitment

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
)

// SaltSize is the number of random bytes mixed into every commitment to
// prevent precomputation/dictionary attacks against low-entropy payloads.
const SaltSize = 32

// ErrDifferentDigest is returned when Decommit's recomputed digest does not
// match the originally published commitment.
var ErrDifferentDigest = errors.New("commitment: digest mismatch")

// Commitment is the value published in round 1: a salted digest of data that
// reveals nothing about data until Decommit is called with it.
type Commitment struct {
	digest []byte
}

// Decommitment carries the data and salt a peer reveals in a later round so
// everyone can check it against the Commitment they received earlier.
type Decommitment struct {
	Data []byte
	Salt []byte
}

// Commitmenter holds the salt and data a party generated itself, so it can
// both publish the Commitment now and produce the Decommitment later.
type Commitmenter struct {
	digest []byte
	data   []byte
	salt   []byte
}

// New salts and digests data, returning a Commitmenter the caller keeps
// locally until it is time to decommit.
func New(data []byte) (*Commitmenter, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return &Commitmenter{
		digest: digest(salt, data),
		data:   data,
		salt:   salt,
	}, nil
}

// Commitment returns the value to broadcast in the commit round.
func (c *Commitmenter) Commitment() *Commitment {
	return &Commitment{digest: append([]byte(nil), c.digest...)}
}

// Decommitment returns the value to broadcast in the decommit round.
func (c *Commitmenter) Decommitment() *Decommitment {
	return &Decommitment{Data: c.data, Salt: c.salt}
}

// Decommit verifies that dec opens c, in constant time.
func (c *Commitment) Decommit(dec *Decommitment) error {
	got := digest(dec.Salt, dec.Data)
	if subtle.ConstantTimeCompare(got, c.digest) != 1 {
		return ErrDifferentDigest
	}
	return nil
}

// Bytes returns the raw digest, for embedding a commitment inside a larger
// transcript hash (e.g. the echo-broadcast consistency check).
func (c *Commitment) Bytes() []byte { return append([]byte(nil), c.digest...) }

// FromBytes wraps a digest received over the wire back into a Commitment.
func FromBytes(b []byte) *Commitment { return &Commitment{digest: append([]byte(nil), b...)} }

func digest(salt, data []byte) []byte {
	h := sha512.New()
	h.Write(salt)
	h.Write(data)
	return h.Sum(nil)
}
