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

// Package keygen implements the 4-round distributed key-generation protocol
// of spec.md §4.3. Grounded on the round structure of
// crypto/tss/ecdsa/cggmp/dkg/dkg.go, simplified from alice's Feldman/
// Birkhoff threshold sharing to plain n-of-n (spec.md's Non-goals put
// threshold subset selection out of scope — every party is a signer).
// Each round is a pure function over the collected messages of the
// previous round, mirroring the teacher's Handler.Finalize boundary.
package keygen

import (
	"crypto/sha512"
	"errors"
	"math/big"

	"github.com/vaultmesh/tss-cmp/pkg/arith"
	"github.com/vaultmesh/tss-cmp/pkg/auxinfo"
	"github.com/vaultmesh/tss-cmp/pkg/commitment"
	"github.com/vaultmesh/tss-cmp/pkg/curve"
	"github.com/vaultmesh/tss-cmp/pkg/party"
	"github.com/vaultmesh/tss-cmp/pkg/zk"
)

var (
	ErrMissingMessage      = errors.New("keygen: missing message from peer")
	ErrDecommitMismatch    = errors.New("keygen: V_j does not match committed value")
	ErrEchoMismatch        = errors.New("keygen: echo hash mismatch")
	ErrSchnorrVerifyFailed = errors.New("keygen: schnorr proof verification failed")
)

const sridSize = 64

// Session carries one party's ephemeral key-gen state across the four
// rounds.
type Session struct {
	p    *party.Party
	comm *commitment.Commitmenter

	x             *big.Int
	X             *curve.Point
	schnorrCommit *zk.SchnorrCommitment
	sridSelf      []byte
	uSelf         []byte
	echoSelf      []byte

	round2 map[party.ID]*Round2Payload
}

// NewSession starts a key-gen run for p; p.SidHash is set to the bootstrap
// InitialSidHash(sid) value used throughout rounds 1-3.
func NewSession(p *party.Party) *Session {
	p.SidHash = auxinfo.InitialSidHash(p.SID)
	return &Session{p: p}
}

// Round1Payload is the value broadcast at the end of round 1: the
// commitment V_i only (spec.md §4.3 round 1).
type Round1Payload struct {
	ID party.ID
	V  *commitment.Commitment
}

// Round1 samples the secret share, the Schnorr first-move, and the
// session's srid/u contributions, and commits to all of it.
func (s *Session) Round1() (*Round1Payload, error) {
	x, err := arith.RandomInt(curve.Order())
	if err != nil {
		return nil, err
	}
	X := curve.ScalarBaseMult(x)

	schnorrCommit, err := zk.NewSchnorrCommitment()
	if err != nil {
		return nil, err
	}

	srid, err := arith.GenRandomBytes(sridSize)
	if err != nil {
		return nil, err
	}
	u, err := arith.GenRandomBytes(sridSize)
	if err != nil {
		return nil, err
	}

	comm, err := commitment.New(buildVData(s.p.Self, srid, X, schnorrCommit.A2(), u))
	if err != nil {
		return nil, err
	}

	s.comm = comm
	s.x = x
	s.X = X
	s.schnorrCommit = schnorrCommit
	s.sridSelf = srid
	s.uSelf = u

	return &Round1Payload{ID: s.p.Self, V: comm.Commitment()}, nil
}

func buildVData(id party.ID, srid []byte, X, A *curve.Point, u []byte) []byte {
	out := make([]byte, 0, 256)
	out = append(out, []byte(id)...)
	out = append(out, srid...)
	out = append(out, X.Bytes()...)
	out = append(out, A.Bytes()...)
	out = append(out, u...)
	return out
}

// Round2Payload reveals everything round 1 committed to, plus the echo
// hash of every V_j this party received (spec.md §4.3 round 2).
type Round2Payload struct {
	ID   party.ID
	Srid []byte
	X    *curve.Point
	A    *curve.Point
	U    []byte
	Salt []byte
	Echo []byte
}

// Round2 computes the echo hash over every round-1 commitment (including
// this party's own) and publishes this party's decommitment.
func (s *Session) Round2(round1 map[party.ID]*Round1Payload) (*Round2Payload, error) {
	echo, err := echoHash(s.p.PeerIDs(), round1)
	if err != nil {
		return nil, err
	}
	s.echoSelf = echo
	dec := s.comm.Decommitment()
	return &Round2Payload{
		ID:   s.p.Self,
		Srid: s.sridSelf,
		X:    s.X,
		A:    s.schnorrCommit.A2(),
		U:    s.uSelf,
		Salt: dec.Salt,
		Echo: echo,
	}, nil
}

// echoHash commits to the concatenation of every round-1 V_j, in
// canonical peer order, so round 3 can detect an equivocating sender who
// showed two different V_i to two different peers.
func echoHash(ids []party.ID, round1 map[party.ID]*Round1Payload) ([]byte, error) {
	total := 0
	vs := make([][]byte, 0, len(ids))
	for _, id := range ids {
		msg, ok := round1[id]
		if !ok {
			return nil, ErrMissingMessage
		}
		v := msg.V.Bytes()
		vs = append(vs, v)
		total += len(v)
	}
	buf := make([]byte, 0, total)
	for _, v := range vs {
		buf = append(buf, v...)
	}
	sum := sha512.Sum512(buf)
	return sum[:], nil
}

// Round3Payload carries the completed Schnorr proof of knowledge of x_i.
type Round3Payload struct {
	ID    party.ID
	Proof *zk.SchnorrProof
}

// Round3 verifies every peer's round-1 commitment against its round-2
// decommitment, checks the echo broadcast is unanimous, combines srid, and
// completes this party's Schnorr proof under the combined aux.
func (s *Session) Round3(round1 map[party.ID]*Round1Payload, round2 map[party.ID]*Round2Payload) (*Round3Payload, error) {
	for _, id := range s.p.PeerIDs() {
		r1, ok := round1[id]
		if !ok {
			return nil, ErrMissingMessage
		}
		r2, ok := round2[id]
		if !ok {
			return nil, ErrMissingMessage
		}
		data := buildVData(id, r2.Srid, r2.X, r2.A, r2.U)
		if err := r1.V.Decommit(&commitment.Decommitment{Data: data, Salt: r2.Salt}); err != nil {
			return nil, ErrDecommitMismatch
		}
		if !bytesEqual(r2.Echo, s.echoSelf) {
			return nil, ErrEchoMismatch
		}
	}

	s.round2 = round2

	sridParts := make([][]byte, 0, len(s.p.PeerIDs()))
	for _, id := range s.p.PeerIDs() {
		sridParts = append(sridParts, round2[id].Srid)
	}
	s.p.Srid = arith.XORBytes(sridParts...)

	aux := s.p.Context(s.p.Self, s.p.Srid)
	proof := s.schnorrCommit.Complete(s.x, s.X, aux)

	return &Round3Payload{ID: s.p.Self, Proof: proof}, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Round4 verifies every peer's Schnorr proof under the combined-srid aux,
// then finalizes this party's persisted state: stores every peer's public
// share and recomputes sid_hash now that the X_j vector is known.
func (s *Session) Round4(round3 map[party.ID]*Round3Payload) error {
	for _, id := range s.p.PeerIDs() {
		r3, ok := round3[id]
		if !ok {
			return ErrMissingMessage
		}
		r2 := s.round2[id]
		aux := s.p.Context(id, s.p.Srid)
		if err := r3.Proof.Verify(r2.X, aux); err != nil {
			return ErrSchnorrVerifyFailed
		}
		s.p.SetPeer(&party.Peer{ID: id, X: r2.X})
	}
	s.p.X = s.x
	return s.p.RecomputeSidHash()
}
