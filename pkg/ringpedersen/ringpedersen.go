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

// Package ringpedersen builds the Ring-Pedersen commitment parameters
// (N, s, t) used as the hiding/binding base for every ZKP range proof in
// pkg/zk, grounded on crypto/homo/paillier/ringpedersenparameter.go.
package ringpedersen

import (
	"errors"
	"math/big"

	"github.com/vaultmesh/tss-cmp/pkg/arith"
)

// ErrInvalidParameters is returned when s or t is not coprime to N.
var ErrInvalidParameters = errors.New("ringpedersen: s, t must be coprime to N")

var big2 = big.NewInt(2)

// PublicParams is the published (N, s, t) triple; the discrete log λ with
// s = t^λ mod N is kept secret by the generating party (spec.md §3).
type PublicParams struct {
	n, s, t *big.Int
}

// NewPublicParams validates and wraps a (N, s, t) triple received from a peer.
func NewPublicParams(n, s, t *big.Int) (*PublicParams, error) {
	if !arith.IsCoprime(s, n) || !arith.IsCoprime(t, n) {
		return nil, ErrInvalidParameters
	}
	return &PublicParams{n: new(big.Int).Set(n), s: new(big.Int).Set(s), t: new(big.Int).Set(t)}, nil
}

func (p *PublicParams) N() *big.Int { return new(big.Int).Set(p.n) }
func (p *PublicParams) S() *big.Int { return new(big.Int).Set(p.s) }
func (p *PublicParams) T() *big.Int { return new(big.Int).Set(p.t) }

// Commit computes s^x * t^r mod N, the commitment primitive spec.md §4.1
// names directly.
func (p *PublicParams) Commit(x, r *big.Int) *big.Int {
	sx := new(big.Int).Exp(p.s, x, p.n)
	tr := new(big.Int).Exp(p.t, r, p.n)
	c := sx.Mul(sx, tr)
	return c.Mod(c, p.n)
}

// PrivateParams additionally holds the discrete-log secret λ and φ(N), so
// the owning party can produce a ψ_rped proof of well-formedness.
type PrivateParams struct {
	*PublicParams
	lambda *big.Int
	eulerN *big.Int
}

// Generate derives fresh Ring-Pedersen parameters over the given RSA
// modulus N (p, q its safe-prime factorization), following spec.md §4.1:
// pick τ random in Z/N*, λ random in Z/(φ(N)/4), t = τ², s = t^λ mod N.
func Generate(n, p, q *big.Int) (*PrivateParams, error) {
	eulerN := new(big.Int).Mul(new(big.Int).Sub(p, big.NewInt(1)), new(big.Int).Sub(q, big.NewInt(1)))
	quarterEuler := new(big.Int).Rsh(eulerN, 2)

	lambda, err := arith.RandomInt(quarterEuler)
	if err != nil {
		return nil, err
	}
	tau, err := arith.RandomCoprimeInt(n)
	if err != nil {
		return nil, err
	}
	t := new(big.Int).Exp(tau, big2, n)
	s := new(big.Int).Exp(t, lambda, n)

	pub, err := NewPublicParams(n, s, t)
	if err != nil {
		return nil, err
	}
	return &PrivateParams{PublicParams: pub, lambda: lambda, eulerN: eulerN}, nil
}

// Lambda returns the discrete-log secret λ with s = t^λ mod N.
func (p *PrivateParams) Lambda() *big.Int { return new(big.Int).Set(p.lambda) }

// EulerN returns φ(N), needed by ψ_rped's Fiat-Shamir responses mod φ(N).
func (p *PrivateParams) EulerN() *big.Int { return new(big.Int).Set(p.eulerN) }
