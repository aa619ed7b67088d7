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

// Package party holds the long-lived per-party state (L3 of spec.md §2):
// the secret scalar share, the public share vector, Paillier/Ring-Pedersen
// key material for self and peers, and the sid_hash binding all of it
// together. Grounded on the party struct alice's dkg/dkg.go builds up
// across rounds, generalized here into a value every protocol phase reads
// and updates in place (spec.md §3's Party entity).
package party

import (
	"errors"
	"math/big"
	"sort"

	"github.com/vaultmesh/tss-cmp/pkg/auxinfo"
	"github.com/vaultmesh/tss-cmp/pkg/curve"
	"github.com/vaultmesh/tss-cmp/pkg/paillier"
	"github.com/vaultmesh/tss-cmp/pkg/ringpedersen"
)

// ErrUnknownPeer is returned when a party ID is not present in the group.
var ErrUnknownPeer = errors.New("party: unknown peer id")

// ID identifies a party; spec.md §3 calls it "an arbitrary 64-bit label"
// but any opaque, comparable, and orderable string works equally well and
// is easier to carry through logs.
type ID = string

// Peer is the public material this party keeps for one other member of the
// signing group (or for itself).
type Peer struct {
	ID            ID
	X             *curve.Point // public share X_j = g^{x_j}
	PaillierPub   *paillier.PublicKey
	RingPedersen  *ringpedersen.PublicParams
}

// Party is one signer's complete long-lived state, persisted across
// sessions per spec.md §6 ("Persisted party state after key-gen and each
// refresh").
type Party struct {
	Self ID

	SID     []byte // session id agreed out of band
	Srid    []byte // shared random identifier, XOR of per-party contributions
	SidHash []byte // recomputed after key-gen and every refresh

	X     *big.Int // own secret scalar share
	Priv  *paillier.PrivateKey
	RPriv *ringpedersen.PrivateParams

	peers   map[ID]*Peer
	order   []ID // canonical order, sorted, fixed at group formation
}

// New creates an empty Party for self in a group with the given member ids
// (self included); ids are sorted once to fix the canonical order every
// sid_hash computation and MtA peer iteration relies on.
func New(self ID, sid []byte, memberIDs []ID) *Party {
	order := append([]ID(nil), memberIDs...)
	sort.Strings(order)
	return &Party{
		Self:  self,
		SID:   append([]byte(nil), sid...),
		peers: make(map[ID]*Peer, len(order)),
		order: order,
	}
}

// PeerIDs returns the group's member ids in canonical (sorted) order.
func (p *Party) PeerIDs() []ID { return append([]ID(nil), p.order...) }

// NumPeers returns the number of OTHER parties in the group (N-1).
func (p *Party) NumPeers() uint32 { return uint32(len(p.order) - 1) }

// SetPeer records (or overwrites) the public material for a group member.
func (p *Party) SetPeer(peer *Peer) { p.peers[peer.ID] = peer }

// Peer returns the stored public material for id.
func (p *Party) Peer(id ID) (*Peer, error) {
	peer, ok := p.peers[id]
	if !ok {
		return nil, ErrUnknownPeer
	}
	return peer, nil
}

// AggregatePublicKey returns Σ X_j over the whole group, the joint ECDSA
// public key spec.md §3's invariant names ("g^{Σ x_i} equals the aggregate
// public key").
func (p *Party) AggregatePublicKey() (*curve.Point, error) {
	acc := curve.Identity()
	for _, id := range p.order {
		peer, err := p.Peer(id)
		if err != nil {
			return nil, err
		}
		acc = acc.Add(peer.X)
	}
	return acc, nil
}

// RecomputeSidHash rebuilds sid_hash from the currently stored sid, srid,
// and every peer's public material, in canonical order — spec.md §3's
// "sid_hash must be recomputed whenever any binding input changes". Called
// once at the end of key-gen (PaillierPub/RingPedersen still nil on every
// peer — auxinfo.SidHash treats those as absent via bigIntBytesOrEmpty) and
// again at the end of every refresh, once they are populated.
func (p *Party) RecomputeSidHash() error {
	bindings := make([]auxinfo.PartyBinding, 0, len(p.order))
	for _, id := range p.order {
		peer, err := p.Peer(id)
		if err != nil {
			return err
		}
		b := auxinfo.PartyBinding{ID: peer.ID, X: peer.X}
		if peer.PaillierPub != nil {
			b.PaillierN = peer.PaillierPub.N()
		}
		if peer.RingPedersen != nil {
			b.RingPedersenN = peer.RingPedersen.N()
			b.RingPedersenS = peer.RingPedersen.S()
			b.RingPedersenT = peer.RingPedersen.T()
		}
		bindings = append(bindings, b)
	}
	p.SidHash = auxinfo.SidHash(p.SID, p.Srid, bindings)
	return nil
}

// Context builds the (sid_hash, prover_id, extra) Fiat-Shamir binding used
// by every ZKP this party produces or verifies (spec.md §3's Aux-info
// entity).
func (p *Party) Context(proverID ID, extra []byte) auxinfo.Context {
	return auxinfo.Context{SidHash: p.SidHash, ProverID: proverID, Extra: extra}
}
