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

// Package auxinfo carries the L2 transcript-binding buffer (sid_hash,
// prover_id, context) that pkg/zk threads through every Fiat-Shamir
// challenge, and the sid_hash derivation itself (spec.md §3). Grounded on
// the aux binding alice's cggmp proofs take as a parameter (see
// crypto/zkproof/paillier/encrangezkproof.go's ssidInfo argument), generalized
// here into its own package since this system has no protobuf session
// envelope to carry it implicitly.
package auxinfo

import (
	"crypto/sha512"
	"math/big"

	"github.com/vaultmesh/tss-cmp/pkg/curve"
)

// PartyBinding is one party's contribution to the sid_hash transcript:
// its id, its share-verification point, and its Paillier/Ring-Pedersen
// public parameters.
type PartyBinding struct {
	ID            string
	X             *curve.Point
	PaillierN     *big.Int
	RingPedersenN *big.Int
	RingPedersenS *big.Int
	RingPedersenT *big.Int
}

// SidHash computes sid_hash = SHA-512(sid || srid || g || q || for each
// party: id, X, Paillier N, Ring-Pedersen N, s, t), the binding spec.md §3
// names verbatim. parties must be in a canonical (e.g. sorted-by-id) order
// shared by every caller, since the hash is order-sensitive.
func SidHash(sid, srid []byte, parties []PartyBinding) []byte {
	h := sha512.New()
	h.Write(sid)
	h.Write(srid)
	h.Write(curve.Base().Bytes())
	h.Write(curve.Order().Bytes())
	for _, p := range parties {
		h.Write([]byte(p.ID))
		h.Write(p.X.Bytes())
		h.Write(bigIntBytesOrEmpty(p.PaillierN))
		h.Write(bigIntBytesOrEmpty(p.RingPedersenN))
		h.Write(bigIntBytesOrEmpty(p.RingPedersenS))
		h.Write(bigIntBytesOrEmpty(p.RingPedersenT))
	}
	return h.Sum(nil)
}

// Context is the (sid_hash, prover_id, context) transcript prefix every ZKP
// in pkg/zk mixes into its Fiat-Shamir challenge, so a proof generated for
// one party/session can never be replayed against another.
type Context struct {
	SidHash  []byte
	ProverID string
	Extra    []byte // optional additional context, e.g. combined rho
}

// Bytes serializes the context deterministically for hashing.
func (c Context) Bytes() []byte {
	out := make([]byte, 0, len(c.SidHash)+len(c.ProverID)+len(c.Extra)+16)
	out = appendLenPrefixed(out, c.SidHash)
	out = appendLenPrefixed(out, []byte(c.ProverID))
	out = appendLenPrefixed(out, c.Extra)
	return out
}

// bigIntBytesOrEmpty lets sid_hash be computed during key-gen, before any
// party has generated Paillier/Ring-Pedersen material: those fields are
// simply absent from the hash input until refresh establishes them.
func bigIntBytesOrEmpty(v *big.Int) []byte {
	if v == nil {
		return nil
	}
	return v.Bytes()
}

// InitialSidHash derives the bootstrap sid_hash used throughout key-gen
// rounds 1-3, before any party's public share or key material exists to
// bind: SHA-512(sid). Key-gen round 4 calls SidHash with the now-known X_j
// vector to produce the "real" post-key-gen sid_hash spec.md §3 describes.
func InitialSidHash(sid []byte) []byte {
	h := sha512.New()
	h.Write(sid)
	return h.Sum(nil)
}

func appendLenPrefixed(dst, src []byte) []byte {
	var lenBuf [8]byte
	n := uint64(len(src))
	for i := 0; i < 8; i++ {
		lenBuf[i] = byte(n >> (8 * uint(7-i)))
	}
	dst = append(dst, lenBuf[:]...)
	return append(dst, src...)
}
