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

	"github.com/vaultmesh/tss-cmp/pkg/arith"
	"github.com/vaultmesh/tss-cmp/pkg/auxinfo"
	"github.com/vaultmesh/tss-cmp/pkg/curve"
	"github.com/vaultmesh/tss-cmp/pkg/paillier"
	"github.com/vaultmesh/tss-cmp/pkg/ringpedersen"
)

// LogStarProof is ψ_log of spec.md §4.2 item 7: proves a Paillier
// ciphertext C and a group element X = g^x share the same plaintext x in
// range. Reused for both ψ_logG (binding Γ_i = g^γ to G in presign round 2)
// and ψ_logK (binding Δ_i = Γ^k to K in presign round 3), which spec.md
// §4.5 treats as the same proof shape against different base points.
// Grounded on crypto/zkproof/paillier/logstar.go.
type LogStarProof struct {
	S, A, D *big.Int
	Y       *curve.Point
	Z1      *big.Int
	Z2      *big.Int
	Z3      *big.Int
}

// ProveLogStar proves that ciphertext C = EncryptWithNonce(pub, x, rho)
// encrypts the same x with X = base.ScalarMult(x).
func ProveLogStar(pub *paillier.PublicKey, ped *ringpedersen.PublicParams, base *curve.Point, C, x, rho *big.Int, aux auxinfo.Context) (*LogStarProof, error) {
	alpha, err := arith.RandomInRange(TwoExpLEps())
	if err != nil {
		return nil, err
	}
	mu, err := arith.RandomInRange(new(big.Int).Mul(TwoExpL(), ped.N()))
	if err != nil {
		return nil, err
	}
	r, err := arith.RandomCoprimeInt(pub.N())
	if err != nil {
		return nil, err
	}
	gamma, err := arith.RandomInRange(new(big.Int).Mul(TwoExpLEps(), ped.N()))
	if err != nil {
		return nil, err
	}

	S := ped.Commit(x, mu)
	A, err := pub.EncryptWithNonce(modN(alpha, pub.N()), r)
	if err != nil {
		return nil, err
	}
	Y := base.ScalarMult(alpha)
	D := ped.Commit(alpha, gamma)

	e := logStarChallenge(aux, C, pub.N(), ped, base, S, A, D, Y)

	z1 := new(big.Int).Mul(e, x)
	z1.Add(z1, alpha)
	z2 := new(big.Int).Exp(rho, e, pub.N())
	z2.Mul(z2, r)
	z2.Mod(z2, pub.N())
	z3 := new(big.Int).Mul(e, mu)
	z3.Add(z3, gamma)

	return &LogStarProof{S: S, A: A, D: D, Y: Y, Z1: z1, Z2: z2, Z3: z3}, nil
}

// Verify checks ψ_log against ciphertext C, base point base, and public
// point X = base^x, per spec.md §4.2 item 7.
func (pf *LogStarProof) Verify(pub *paillier.PublicKey, ped *ringpedersen.PublicParams, base, X *curve.Point, C *big.Int, aux auxinfo.Context) error {
	if err := arith.InAbsRange(pf.Z1, TwoExpLEps()); err != nil {
		return ErrVerifyFailed
	}

	e := logStarChallenge(aux, C, pub.N(), ped, base, pf.S, pf.A, pf.D, pf.Y)

	lhs, err := pub.EncryptWithNonce(modN(pf.Z1, pub.N()), pf.Z2)
	if err != nil {
		return ErrVerifyFailed
	}
	Ce := new(big.Int).Exp(C, e, pub.NSquare())
	rhs := new(big.Int).Mul(pf.A, Ce)
	rhs.Mod(rhs, pub.NSquare())
	if lhs.Cmp(rhs) != 0 {
		return ErrVerifyFailed
	}

	gz1 := base.ScalarMult(pf.Z1)
	yXe := pf.Y.Add(X.ScalarMult(e))
	if !gz1.Equal(yXe) {
		return ErrVerifyFailed
	}

	lhsPed := ped.Commit(pf.Z1, pf.Z3)
	Se := new(big.Int).Exp(pf.S, e, ped.N())
	rhsPed := new(big.Int).Mul(pf.D, Se)
	rhsPed.Mod(rhsPed, ped.N())
	if lhsPed.Cmp(rhsPed) != 0 {
		return ErrVerifyFailed
	}
	return nil
}

func logStarChallenge(aux auxinfo.Context, C, proverN *big.Int, ped *ringpedersen.PublicParams, base *curve.Point, S, A, D *big.Int, Y *curve.Point) *big.Int {
	return challengeSigned(aux, curve.Order(), C.Bytes(), proverN.Bytes(), ped.N().Bytes(), ped.S().Bytes(), ped.T().Bytes(), S.Bytes(), A.Bytes(), D.Bytes(), base.Bytes(), Y.Bytes())
}
