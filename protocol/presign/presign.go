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

// Package presign implements the 4-round pre-signing protocol of spec.md
// §4.5: two Multiplicative-to-Additive conversions per peer pair, over
// Paillier, that turn each party's (k_i, γ_i, x_i) into a one-shot nonce
// commitment (R, k_i, χ_i) ready for a local signature share. Grounded on
// the MtA construction of crypto/cggmp/mta.go; the round layout itself
// follows spec.md §4.5 directly since alice's cggmp package exposes MtA as
// a library call rather than a round handler.
//
// Beta sign convention: every MtA randomizer this party samples for a
// message it sends to peer j (beta_{i,j}, betaHat_{i,j}) is negated before
// it is encrypted into D/F (SPEC_FULL.md §6(i)). This means the plaintext
// a receiving peer decrypts from D is already (their share of gamma*k or
// x*k) MINUS the sender's randomizer — so delta_i and chi_i are the sum of
// the decrypted values plus this party's own beta/betaHat for each peer,
// added back in Round3 by subtracting the stored negated values.
package presign

import (
	"errors"
	"math/big"

	"github.com/vaultmesh/tss-cmp/pkg/arith"
	"github.com/vaultmesh/tss-cmp/pkg/curve"
	"github.com/vaultmesh/tss-cmp/pkg/party"
	"github.com/vaultmesh/tss-cmp/pkg/zk"
)

var (
	ErrMissingMessage   = errors.New("presign: missing message from peer")
	ErrEncVerifyFailed  = errors.New("presign: psi_enc verification failed")
	ErrAffpVerifyFailed = errors.New("presign: psi_affp verification failed")
	ErrAffgVerifyFailed = errors.New("presign: psi_affg verification failed")
	ErrLogGVerifyFailed = errors.New("presign: psi_logG verification failed")
	ErrLogKVerifyFailed = errors.New("presign: psi_logK verification failed")
	ErrDeltaMismatch    = errors.New("presign: g^delta does not match sum of Delta_j")
)

// Session carries one party's ephemeral pre-signing state across the four
// rounds. A fresh Session is required for every pre-signing run; its
// output is one-shot and must never be reused across two signatures.
type Session struct {
	p *party.Party

	k, gamma *big.Int
	rho, nu  *big.Int // Paillier nonces for K, G
	K, G     *big.Int

	// per-peer MtA randomizers this party generated when building the
	// message it sends to that peer, already negated (see package doc).
	negBeta    map[party.ID]*big.Int
	negBetaHat map[party.ID]*big.Int

	Gamma *curve.Point // Γ_i = g^gamma

	round2 map[party.ID]*Round2Payload

	gammaCombined *curve.Point
	delta         *big.Int
	Delta         *curve.Point
	chi           *big.Int

	R *curve.Point
}

func NewSession(p *party.Party) *Session {
	return &Session{
		negBeta:    make(map[party.ID]*big.Int),
		negBetaHat: make(map[party.ID]*big.Int),
		p:          p,
	}
}

// Round1Payload broadcasts K, G and individually addresses a psi_enc proof
// to every peer (spec.md §4.5 round 1).
type Round1Payload struct {
	ID       party.ID
	K, G     *big.Int
	EncProof map[party.ID]*zk.EncProof
}

// Round1 samples k, γ, encrypts both under this party's own Paillier key,
// and produces a per-peer range proof that K encrypts a scalar in range.
func (s *Session) Round1() (*Round1Payload, error) {
	k, err := arith.RandomInt(curve.Order())
	if err != nil {
		return nil, err
	}
	gamma, err := arith.RandomInt(curve.Order())
	if err != nil {
		return nil, err
	}

	self, err := s.p.Peer(s.p.Self)
	if err != nil {
		return nil, err
	}

	rho, err := arith.RandomCoprimeInt(self.PaillierPub.N())
	if err != nil {
		return nil, err
	}
	K, err := self.PaillierPub.EncryptWithNonce(k, rho)
	if err != nil {
		return nil, err
	}
	nu, err := arith.RandomCoprimeInt(self.PaillierPub.N())
	if err != nil {
		return nil, err
	}
	G, err := self.PaillierPub.EncryptWithNonce(gamma, nu)
	if err != nil {
		return nil, err
	}

	s.k, s.gamma, s.rho, s.nu, s.K, s.G = k, gamma, rho, nu, K, G
	s.Gamma = curve.ScalarBaseMult(gamma)

	encProofs := make(map[party.ID]*zk.EncProof, len(s.p.PeerIDs()))
	for _, id := range s.p.PeerIDs() {
		if id == s.p.Self {
			continue
		}
		peer, err := s.p.Peer(id)
		if err != nil {
			return nil, err
		}
		aux := s.p.Context(s.p.Self, nil)
		proof, err := zk.ProveEnc(self.PaillierPub, peer.RingPedersen, K, k, rho, aux)
		if err != nil {
			return nil, err
		}
		encProofs[id] = proof
	}

	return &Round1Payload{ID: s.p.Self, K: K, G: G, EncProof: encProofs}, nil
}

// Round2Payload is the per-peer MtA response of spec.md §4.5 round 2:
// Γ_i plus the two MtA ciphertext pairs and their binding proofs, each
// addressed to the peer whose K was used to build D/DHat.
type Round2Payload struct {
	ID    party.ID
	Gamma *curve.Point

	D, F, DHat, FHat map[party.ID]*big.Int

	AffpProof map[party.ID]*zk.AffpProof
	AffgProof map[party.ID]*zk.AffgProof
	LogGProof map[party.ID]*zk.LogStarProof
}

// affineNoRerand computes C^x * encY mod nSquare without the extra
// re-randomization pub.AffineTransform applies, so the nonce used inside
// encY stays the exact value the accompanying ZKP proves knowledge of.
func affineNoRerand(nSquare, C, x, encY *big.Int) *big.Int {
	cx := new(big.Int).Exp(C, x, nSquare)
	cx.Mul(cx, encY)
	return cx.Mod(cx, nSquare)
}

// Round2 verifies every peer's psi_enc, then for each peer builds the two
// MtA ciphertext pairs and their binding proofs.
func (s *Session) Round2(round1 map[party.ID]*Round1Payload) (*Round2Payload, error) {
	self, err := s.p.Peer(s.p.Self)
	if err != nil {
		return nil, err
	}

	for _, id := range s.p.PeerIDs() {
		if id == s.p.Self {
			continue
		}
		r1, ok := round1[id]
		if !ok {
			return nil, ErrMissingMessage
		}
		proof, ok := r1.EncProof[s.p.Self]
		if !ok {
			return nil, ErrMissingMessage
		}
		peer, err := s.p.Peer(id)
		if err != nil {
			return nil, err
		}
		aux := s.p.Context(id, nil)
		if err := proof.Verify(peer.PaillierPub, self.RingPedersen, r1.K, aux); err != nil {
			return nil, ErrEncVerifyFailed
		}
	}

	ids := s.p.PeerIDs()
	D := make(map[party.ID]*big.Int, len(ids))
	F := make(map[party.ID]*big.Int, len(ids))
	DHat := make(map[party.ID]*big.Int, len(ids))
	FHat := make(map[party.ID]*big.Int, len(ids))
	affp := make(map[party.ID]*zk.AffpProof, len(ids))
	affg := make(map[party.ID]*zk.AffgProof, len(ids))
	logG := make(map[party.ID]*zk.LogStarProof, len(ids))

	betaBound := zk.TwoExpLPrime()

	for _, id := range ids {
		if id == s.p.Self {
			continue
		}
		peer, err := s.p.Peer(id)
		if err != nil {
			return nil, err
		}
		r1 := round1[id]

		beta, err := arith.RandomInRange(betaBound)
		if err != nil {
			return nil, err
		}
		betaHat, err := arith.RandomInRange(betaBound)
		if err != nil {
			return nil, err
		}
		negBeta := new(big.Int).Neg(beta)
		negBetaHat := new(big.Int).Neg(betaHat)
		s.negBeta[id] = negBeta
		s.negBetaHat[id] = negBetaHat

		// gamma*k leg: D is built under peer's key (C = peer's K), bound by
		// psi_affp to self's existing G = Enc_self(gamma, nu).
		rD, err := arith.RandomCoprimeInt(peer.PaillierPub.N())
		if err != nil {
			return nil, err
		}
		encNegBeta, err := peer.PaillierPub.EncryptWithNonce(modN(negBeta, peer.PaillierPub.N()), rD)
		if err != nil {
			return nil, err
		}
		Dji := affineNoRerand(peer.PaillierPub.NSquare(), r1.K, s.gamma, encNegBeta)

		rF, err := arith.RandomCoprimeInt(self.PaillierPub.N())
		if err != nil {
			return nil, err
		}
		Fji, err := self.PaillierPub.EncryptWithNonce(modN(negBeta, self.PaillierPub.N()), rF)
		if err != nil {
			return nil, err
		}

		// x*k leg: DHat is built the same way but bound by psi_affg to the
		// group point X_i = g^{x_i} rather than a second Paillier ciphertext.
		rDHat, err := arith.RandomCoprimeInt(peer.PaillierPub.N())
		if err != nil {
			return nil, err
		}
		encNegBetaHat, err := peer.PaillierPub.EncryptWithNonce(modN(negBetaHat, peer.PaillierPub.N()), rDHat)
		if err != nil {
			return nil, err
		}
		DHatji := affineNoRerand(peer.PaillierPub.NSquare(), r1.K, s.p.X, encNegBetaHat)

		rFHat, err := arith.RandomCoprimeInt(self.PaillierPub.N())
		if err != nil {
			return nil, err
		}
		FHatji, err := self.PaillierPub.EncryptWithNonce(modN(negBetaHat, self.PaillierPub.N()), rFHat)
		if err != nil {
			return nil, err
		}

		aux := s.p.Context(s.p.Self, nil)

		affpProof, err := zk.ProveAffp(self.PaillierPub, peer.PaillierPub, peer.RingPedersen,
			s.gamma, negBeta, s.nu, rD, rF, r1.K, Dji, s.G, Fji, aux)
		if err != nil {
			return nil, err
		}

		affgProof, err := zk.ProveAffg(peer.PaillierPub, self.PaillierPub, peer.RingPedersen,
			curve.Base(), s.p.X, negBetaHat, rDHat, rFHat, r1.K, DHatji, FHatji, aux)
		if err != nil {
			return nil, err
		}

		logGProof, err := zk.ProveLogStar(self.PaillierPub, peer.RingPedersen, curve.Base(), s.G, s.gamma, s.nu, aux)
		if err != nil {
			return nil, err
		}

		D[id], F[id], DHat[id], FHat[id] = Dji, Fji, DHatji, FHatji
		affp[id], affg[id], logG[id] = affpProof, affgProof, logGProof
	}

	return &Round2Payload{
		ID:        s.p.Self,
		Gamma:     s.Gamma,
		D:         D,
		F:         F,
		DHat:      DHat,
		FHat:      FHat,
		AffpProof: affp,
		AffgProof: affg,
		LogGProof: logG,
	}, nil
}

func modN(v, n *big.Int) *big.Int { return new(big.Int).Mod(v, n) }

// Round3Payload carries this party's delta share and Delta point, and the
// per-peer psi_logK proofs (spec.md §4.5 round 3).
type Round3Payload struct {
	ID        party.ID
	Delta     *big.Int
	DeltaPt   *curve.Point
	LogKProof map[party.ID]*zk.LogStarProof
}

// Round3 verifies every peer's MtA proofs, combines Γ, decrypts the
// received MtA shares, and computes this party's delta/chi accumulators.
func (s *Session) Round3(round1 map[party.ID]*Round1Payload, round2 map[party.ID]*Round2Payload) (*Round3Payload, error) {
	self, err := s.p.Peer(s.p.Self)
	if err != nil {
		return nil, err
	}
	ids := s.p.PeerIDs()

	for _, id := range ids {
		if id == s.p.Self {
			continue
		}
		r2, ok := round2[id]
		if !ok {
			return nil, ErrMissingMessage
		}
		peer, err := s.p.Peer(id)
		if err != nil {
			return nil, err
		}
		r1j, ok := round1[id]
		if !ok {
			return nil, ErrMissingMessage
		}
		aux := s.p.Context(id, nil)

		affpProof, ok := r2.AffpProof[s.p.Self]
		if !ok {
			return nil, ErrMissingMessage
		}
		if err := affpProof.Verify(peer.PaillierPub, self.PaillierPub, self.RingPedersen,
			s.K, r2.D[s.p.Self], r1j.G, r2.F[s.p.Self], aux); err != nil {
			return nil, ErrAffpVerifyFailed
		}

		affgProof, ok := r2.AffgProof[s.p.Self]
		if !ok {
			return nil, ErrMissingMessage
		}
		if err := affgProof.Verify(self.PaillierPub, peer.PaillierPub, self.RingPedersen,
			curve.Base(), peer.X, s.K, r2.DHat[s.p.Self], r2.FHat[s.p.Self], aux); err != nil {
			return nil, ErrAffgVerifyFailed
		}

		logGProof, ok := r2.LogGProof[s.p.Self]
		if !ok {
			return nil, ErrMissingMessage
		}
		if err := logGProof.Verify(peer.PaillierPub, self.RingPedersen, curve.Base(), r2.Gamma, r1j.G, aux); err != nil {
			return nil, ErrLogGVerifyFailed
		}
	}

	s.round2 = round2

	Gamma := s.Gamma
	for _, id := range ids {
		if id == s.p.Self {
			continue
		}
		Gamma = Gamma.Add(round2[id].Gamma)
	}
	s.gammaCombined = Gamma

	delta := new(big.Int).Mul(s.gamma, s.k)
	chi := new(big.Int).Mul(s.p.X, s.k)

	for _, id := range ids {
		if id == s.p.Self {
			continue
		}
		r2 := round2[id]
		alpha, err := s.p.Priv.DecryptCentered(r2.D[s.p.Self])
		if err != nil {
			return nil, err
		}
		alphaHat, err := s.p.Priv.DecryptCentered(r2.DHat[s.p.Self])
		if err != nil {
			return nil, err
		}
		delta.Add(delta, alpha)
		chi.Add(chi, alphaHat)

		// This party embedded -beta/-betaHat into the D/DHat it sent to id in
		// Round2 (spec.md §6(i)'s negate-at-construction convention); id's
		// decryption of that share already reflects the negative mask, so this
		// party must add the positive mask back into its own accumulator to
		// cancel it out of the group sum.
		delta.Sub(delta, s.negBeta[id])
		chi.Sub(chi, s.negBetaHat[id])
	}
	delta.Mod(delta, curve.Order())
	chi.Mod(chi, curve.Order())

	s.delta = delta
	s.chi = chi
	s.Delta = Gamma.ScalarMult(s.k)

	logKProofs := make(map[party.ID]*zk.LogStarProof, len(ids))
	for _, id := range ids {
		if id == s.p.Self {
			continue
		}
		peer, err := s.p.Peer(id)
		if err != nil {
			return nil, err
		}
		aux := s.p.Context(s.p.Self, nil)
		proof, err := zk.ProveLogStar(self.PaillierPub, peer.RingPedersen, Gamma, s.K, s.k, s.rho, aux)
		if err != nil {
			return nil, err
		}
		logKProofs[id] = proof
	}

	return &Round3Payload{ID: s.p.Self, Delta: delta, DeltaPt: s.Delta, LogKProof: logKProofs}, nil
}

// Round4 verifies every peer's psi_logK, checks g^delta == sum of Delta_j,
// and derives the shared nonce commitment R.
func (s *Session) Round4(round1 map[party.ID]*Round1Payload, round3 map[party.ID]*Round3Payload) error {
	self, err := s.p.Peer(s.p.Self)
	if err != nil {
		return err
	}
	ids := s.p.PeerIDs()

	deltaSum := new(big.Int).Set(s.delta)
	DeltaSum := s.Delta
	for _, id := range ids {
		if id == s.p.Self {
			continue
		}
		r3, ok := round3[id]
		if !ok {
			return ErrMissingMessage
		}
		peer, err := s.p.Peer(id)
		if err != nil {
			return err
		}
		r1j, ok := round1[id]
		if !ok {
			return ErrMissingMessage
		}
		aux := s.p.Context(id, nil)
		proof, ok := r3.LogKProof[s.p.Self]
		if !ok {
			return ErrMissingMessage
		}
		if err := proof.Verify(peer.PaillierPub, self.RingPedersen, s.gammaCombined, r3.DeltaPt, r1j.K, aux); err != nil {
			return ErrLogKVerifyFailed
		}
		deltaSum.Add(deltaSum, r3.Delta)
		DeltaSum = DeltaSum.Add(r3.DeltaPt)
	}
	deltaSum.Mod(deltaSum, curve.Order())

	if !curve.ScalarBaseMult(deltaSum).Equal(DeltaSum) {
		return ErrDeltaMismatch
	}

	deltaInv := new(big.Int).ModInverse(deltaSum, curve.Order())
	s.R = s.gammaCombined.ScalarMult(deltaInv)
	return nil
}

// ShareK returns this party's final nonce share k_i, required by sign.Share.
func (s *Session) ShareK() *big.Int { return new(big.Int).Set(s.k) }

// ShareChi returns this party's final chi_i, required by sign.Share.
func (s *Session) ShareChi() *big.Int { return new(big.Int).Set(s.chi) }

// SharePoint returns the shared nonce commitment point R, required by
// sign.Share.
func (s *Session) SharePoint() *curve.Point { return s.R }
