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

// AffgProof is ψ_affg of spec.md §4.2 item 6: given peer ciphertext C
// (under peer's Paillier key pub0), prover reveals D = C^x · Enc_peer(y, s)
// and Y = Enc_self(y, rho_y), and proves x (with public X = base^x) and y
// lie in their declared ranges. Used in presign round 2 to bind the
// γ·k_j and x_i·k_j MtA shares to the public Γ_i / X_i commitments.
// Grounded on crypto/zkproof/paillier/affinegroupzkproof.go.
type AffgProof struct {
	S, T, A, By, E, F *big.Int
	Bx                *curve.Point
	Z1, Z2, Z3, Z4    *big.Int
	W, Wy             *big.Int
}

// ProveAffg builds ψ_affg: x is the secret scalar with public X = base^x
// (e.g. γ_i or x_i), y is the MtA beta share, rho is the nonce used when
// re-randomizing C^x·Enc_peer(y), rhoY the nonce of Y = Enc_self(y, rhoY).
func ProveAffg(pub0, pub1 *paillier.PublicKey, ped *ringpedersen.PublicParams, base *curve.Point, x, y, rho, rhoY, C, D, Y *big.Int, aux auxinfo.Context) (*AffgProof, error) {
	alpha, err := arith.RandomInRange(TwoExpLEps())
	if err != nil {
		return nil, err
	}
	beta, err := arith.RandomInRange(TwoExpLPrimeEps())
	if err != nil {
		return nil, err
	}
	r, err := arith.RandomCoprimeInt(pub0.N())
	if err != nil {
		return nil, err
	}
	ry, err := arith.RandomCoprimeInt(pub1.N())
	if err != nil {
		return nil, err
	}
	gamma, err := arith.RandomInRange(new(big.Int).Mul(TwoExpLEps(), ped.N()))
	if err != nil {
		return nil, err
	}
	m, err := arith.RandomInRange(new(big.Int).Mul(TwoExpL(), ped.N()))
	if err != nil {
		return nil, err
	}
	delta, err := arith.RandomInRange(new(big.Int).Mul(TwoExpLEps(), ped.N()))
	if err != nil {
		return nil, err
	}
	mu, err := arith.RandomInRange(new(big.Int).Mul(TwoExpL(), ped.N()))
	if err != nil {
		return nil, err
	}

	Calpha := new(big.Int).Exp(C, alpha, pub0.NSquare())
	encBeta, err := pub0.EncryptWithNonce(modN(beta, pub0.N()), r)
	if err != nil {
		return nil, err
	}
	A := new(big.Int).Mul(Calpha, encBeta)
	A.Mod(A, pub0.NSquare())

	Bx := base.ScalarMult(alpha)
	By, err := pub1.EncryptWithNonce(modN(beta, pub1.N()), ry)
	if err != nil {
		return nil, err
	}

	E := ped.Commit(alpha, gamma)
	S := ped.Commit(x, m)
	F := ped.Commit(beta, delta)
	T := ped.Commit(y, mu)

	e := affgChallenge(aux, pub0.N(), pub1.N(), ped, base, C, D, Y, S, T, A, By, E, F, Bx)

	z1 := new(big.Int).Mul(e, x)
	z1.Add(z1, alpha)
	z2 := new(big.Int).Mul(e, y)
	z2.Add(z2, beta)
	z3 := new(big.Int).Mul(e, m)
	z3.Add(z3, gamma)
	z4 := new(big.Int).Mul(e, mu)
	z4.Add(z4, delta)
	w := new(big.Int).Exp(rho, e, pub0.N())
	w.Mul(w, r)
	w.Mod(w, pub0.N())
	wy := new(big.Int).Exp(rhoY, e, pub1.N())
	wy.Mul(wy, ry)
	wy.Mod(wy, pub1.N())

	return &AffgProof{S: S, T: T, A: A, By: By, E: E, F: F, Bx: Bx, Z1: z1, Z2: z2, Z3: z3, Z4: z4, W: w, Wy: wy}, nil
}

// Verify checks ψ_affg against peer ciphertext C, D, Y, public point X, and
// base, per spec.md §4.2 item 6.
func (pf *AffgProof) Verify(pub0, pub1 *paillier.PublicKey, ped *ringpedersen.PublicParams, base, X *curve.Point, C, D, Y *big.Int, aux auxinfo.Context) error {
	if !arith.IsCoprime(pf.S, ped.N()) || !arith.IsCoprime(pf.T, ped.N()) ||
		!arith.IsCoprime(pf.E, ped.N()) || !arith.IsCoprime(pf.F, ped.N()) {
		return ErrVerifyFailed
	}
	if !arith.IsCoprime(pf.A, pub0.N()) || !arith.IsCoprime(pf.By, pub1.N()) {
		return ErrVerifyFailed
	}
	if err := arith.InAbsRange(pf.Z1, TwoExpLEps()); err != nil {
		return ErrVerifyFailed
	}
	if err := arith.InAbsRange(pf.Z2, TwoExpLPrimeEps()); err != nil {
		return ErrVerifyFailed
	}

	e := affgChallenge(aux, pub0.N(), pub1.N(), ped, base, C, D, Y, pf.S, pf.T, pf.A, pf.By, pf.E, pf.F, pf.Bx)

	gz1 := base.ScalarMult(pf.Z1)
	bxXe := pf.Bx.Add(X.ScalarMult(e))
	if !gz1.Equal(bxXe) {
		return ErrVerifyFailed
	}

	lhs, err := pub0.EncryptWithNonce(modN(pf.Z2, pub0.N()), pf.W)
	if err != nil {
		return ErrVerifyFailed
	}
	Cz1 := new(big.Int).Exp(C, pf.Z1, pub0.NSquare())
	lhs.Mul(lhs, Cz1)
	lhs.Mod(lhs, pub0.NSquare())
	De := new(big.Int).Exp(D, e, pub0.NSquare())
	rhs := new(big.Int).Mul(pf.A, De)
	rhs.Mod(rhs, pub0.NSquare())
	if lhs.Cmp(rhs) != 0 {
		return ErrVerifyFailed
	}

	lhsY, err := pub1.EncryptWithNonce(modN(pf.Z2, pub1.N()), pf.Wy)
	if err != nil {
		return ErrVerifyFailed
	}
	Ye := new(big.Int).Exp(Y, e, pub1.NSquare())
	rhsY := new(big.Int).Mul(pf.By, Ye)
	rhsY.Mod(rhsY, pub1.NSquare())
	if lhsY.Cmp(rhsY) != 0 {
		return ErrVerifyFailed
	}

	sz1tz3 := ped.Commit(pf.Z1, pf.Z3)
	ESe := new(big.Int).Exp(pf.S, e, ped.N())
	ESe.Mul(ESe, pf.E)
	ESe.Mod(ESe, ped.N())
	if sz1tz3.Cmp(ESe) != 0 {
		return ErrVerifyFailed
	}

	sz2tz4 := ped.Commit(pf.Z2, pf.Z4)
	FTe := new(big.Int).Exp(pf.T, e, ped.N())
	FTe.Mul(FTe, pf.F)
	FTe.Mod(FTe, ped.N())
	if sz2tz4.Cmp(FTe) != 0 {
		return ErrVerifyFailed
	}
	return nil
}

func affgChallenge(aux auxinfo.Context, n0, n1 *big.Int, ped *ringpedersen.PublicParams, base *curve.Point, C, D, Y, S, T, A, By, E, F *big.Int, Bx *curve.Point) *big.Int {
	return challengeSigned(aux, curve.Order(),
		n0.Bytes(), n1.Bytes(), ped.N().Bytes(), ped.S().Bytes(), ped.T().Bytes(),
		base.Bytes(), C.Bytes(), D.Bytes(), Y.Bytes(),
		S.Bytes(), T.Bytes(), A.Bytes(), By.Bytes(), E.Bytes(), F.Bytes(), Bx.Bytes())
}
