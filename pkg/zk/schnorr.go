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

package zk

import (
	"math/big"

	"github.com/vaultmesh/tss-cmp/pkg/auxinfo"
	"github.com/vaultmesh/tss-cmp/pkg/curve"
)

// SchnorrProof is ψ_sch of spec.md §4.2 item 1: proof of knowledge of x with
// X = g^x. Grounded on crypto/zkproof/schnorr.go, simplified to the single
// fixed-point case (R absent, i.e. the teacher's "standard Schnorr protocol"
// remark) since every caller in this system proves knowledge against the
// base point only.
type SchnorrProof struct {
	A *curve.Point
	Z *big.Int
}

// SchnorrCommitment is round 1's first-move, committed to before the
// challenge is known (A_i = g^τ in key-gen round 1).
type SchnorrCommitment struct {
	tau *big.Int
	A   *curve.Point
}

// NewSchnorrCommitment samples τ and computes A = g^τ, to be broadcast (or
// hash-committed) before the prover knows the verifier's challenge.
func NewSchnorrCommitment() (*SchnorrCommitment, error) {
	tau, err := randomScalar()
	if err != nil {
		return nil, err
	}
	return &SchnorrCommitment{tau: tau, A: curve.ScalarBaseMult(tau)}, nil
}

// A2 returns the committed first-move point.
func (c *SchnorrCommitment) A2() *curve.Point { return c.A }

// Complete finishes the proof for secret x (with X = g^x) using aux as the
// Fiat-Shamir transcript prefix, per spec.md §4.3 round 3 ("Complete Schnorr
// proof ψ_i for X_i with this aux").
func (c *SchnorrCommitment) Complete(x *big.Int, X *curve.Point, aux auxinfo.Context) *SchnorrProof {
	e := schnorrChallenge(aux, X, c.A)
	z := new(big.Int).Mul(e, x)
	z.Add(z, c.tau)
	z.Mod(z, curve.Order())
	return &SchnorrProof{A: c.A, Z: z}
}

// Prove runs commit and complete in one call, for callers that do not need
// to publish the commitment separately from the response.
func Prove(x *big.Int, X *curve.Point, aux auxinfo.Context) (*SchnorrProof, error) {
	c, err := NewSchnorrCommitment()
	if err != nil {
		return nil, err
	}
	return c.Complete(x, X, aux), nil
}

// Verify checks g^z == A * X^e with e recomputed from aux, X and A — per
// spec.md §4.2 item 1.
func (p *SchnorrProof) Verify(X *curve.Point, aux auxinfo.Context) error {
	if p.Z.Sign() < 0 || p.Z.Cmp(curve.Order()) >= 0 {
		return ErrVerifyFailed
	}
	e := schnorrChallenge(aux, X, p.A)
	lhs := curve.ScalarBaseMult(p.Z)
	rhs := p.A.Add(X.ScalarMult(e))
	if !lhs.Equal(rhs) {
		return ErrVerifyFailed
	}
	return nil
}

func schnorrChallenge(aux auxinfo.Context, X, A *curve.Point) *big.Int {
	return challenge(aux, curve.Order(), curve.Base().Bytes(), X.Bytes(), A.Bytes())
}

func randomScalar() (*big.Int, error) {
	return randIntMod(curve.Order())
}
