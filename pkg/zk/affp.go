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

// AffpProof is ψ_affp of spec.md §4.2 item 5: given peer ciphertext C,
// prover reveals D = C^x · Enc_peer(y, s), X = Enc_self(x, ρx) and
// Y = Enc_self(y, ρy), and proves |x|, |y| lie in their declared ranges.
// Same structure as AffgProof (see affg.go) but both x and y are committed
// as Paillier ciphertexts rather than x as a group element — grounded the
// same way on crypto/zkproof/paillier/affinegroupzkproof.go, with the group
// Schnorr leg (Bx = α·G, check against X = x·G) replaced by a second
// Paillier encryption leg (Bx = Enc_self(α, r_x), check against X =
// Enc_self(x, ρx)), matching spec.md's literal phrasing of ψ_affp.
type AffpProof struct {
	S, T, A, By, E, F *big.Int
	Bx                *big.Int
	Z1, Z2, Z3, Z4    *big.Int
	W, Wy, Wx         *big.Int
}

// ProveAffp builds ψ_affp. pub0 is the prover's own Paillier key (under
// which X and Y are encrypted), pub1 is the peer's Paillier key that
// produced ciphertext C (D is built from C under pub1 via homomorphism).
func ProveAffp(pub0, pub1 *paillier.PublicKey, ped *ringpedersen.PublicParams, x, y, rhoX, rho, rhoY, C, D, X, Y *big.Int, aux auxinfo.Context) (*AffpProof, error) {
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
	rx, err := arith.RandomCoprimeInt(pub0.N())
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

	Calpha := new(big.Int).Exp(C, alpha, pub1.NSquare())
	encBeta, err := pub1.EncryptWithNonce(modN(beta, pub1.N()), ry)
	if err != nil {
		return nil, err
	}
	A := new(big.Int).Mul(Calpha, encBeta)
	A.Mod(A, pub1.NSquare())

	Bx, err := pub0.EncryptWithNonce(modN(alpha, pub0.N()), rx)
	if err != nil {
		return nil, err
	}
	By, err := pub0.EncryptWithNonce(modN(beta, pub0.N()), r)
	if err != nil {
		return nil, err
	}

	E := ped.Commit(alpha, gamma)
	S := ped.Commit(x, m)
	F := ped.Commit(beta, delta)
	T := ped.Commit(y, mu)

	e := affpChallenge(aux, pub0.N(), pub1.N(), ped, C, D, X, Y, S, T, A, Bx, By, E, F)

	z1 := new(big.Int).Mul(e, x)
	z1.Add(z1, alpha)
	z2 := new(big.Int).Mul(e, y)
	z2.Add(z2, beta)
	z3 := new(big.Int).Mul(e, m)
	z3.Add(z3, gamma)
	z4 := new(big.Int).Mul(e, mu)
	z4.Add(z4, delta)
	wx := new(big.Int).Exp(rhoX, e, pub0.N())
	wx.Mul(wx, rx)
	wx.Mod(wx, pub0.N())
	w := new(big.Int).Exp(rhoY, e, pub0.N())
	w.Mul(w, r)
	w.Mod(w, pub0.N())
	wy := new(big.Int).Exp(rho, e, pub1.N())
	wy.Mul(wy, ry)
	wy.Mod(wy, pub1.N())

	return &AffpProof{S: S, T: T, A: A, By: By, E: E, F: F, Bx: Bx, Z1: z1, Z2: z2, Z3: z3, Z4: z4, W: w, Wy: wy, Wx: wx}, nil
}

// Verify checks ψ_affp against peer ciphertext C, D, X, Y, per spec.md
// §4.2 item 5.
func (pf *AffpProof) Verify(pub0, pub1 *paillier.PublicKey, ped *ringpedersen.PublicParams, C, D, X, Y *big.Int, aux auxinfo.Context) error {
	if !arith.IsCoprime(pf.S, ped.N()) || !arith.IsCoprime(pf.T, ped.N()) ||
		!arith.IsCoprime(pf.E, ped.N()) || !arith.IsCoprime(pf.F, ped.N()) {
		return ErrVerifyFailed
	}
	if !arith.IsCoprime(pf.A, pub1.N()) || !arith.IsCoprime(pf.Bx, pub0.N()) || !arith.IsCoprime(pf.By, pub0.N()) {
		return ErrVerifyFailed
	}
	if err := arith.InAbsRange(pf.Z1, TwoExpLEps()); err != nil {
		return ErrVerifyFailed
	}
	if err := arith.InAbsRange(pf.Z2, TwoExpLPrimeEps()); err != nil {
		return ErrVerifyFailed
	}

	e := affpChallenge(aux, pub0.N(), pub1.N(), ped, C, D, X, Y, pf.S, pf.T, pf.A, pf.Bx, pf.By, pf.E, pf.F)

	lhsX, err := pub0.EncryptWithNonce(modN(pf.Z1, pub0.N()), pf.Wx)
	if err != nil {
		return ErrVerifyFailed
	}
	Xe := new(big.Int).Exp(X, e, pub0.NSquare())
	rhsX := new(big.Int).Mul(pf.Bx, Xe)
	rhsX.Mod(rhsX, pub0.NSquare())
	if lhsX.Cmp(rhsX) != 0 {
		return ErrVerifyFailed
	}

	lhsY, err := pub0.EncryptWithNonce(modN(pf.Z2, pub0.N()), pf.W)
	if err != nil {
		return ErrVerifyFailed
	}
	Ye := new(big.Int).Exp(Y, e, pub0.NSquare())
	rhsY := new(big.Int).Mul(pf.By, Ye)
	rhsY.Mod(rhsY, pub0.NSquare())
	if lhsY.Cmp(rhsY) != 0 {
		return ErrVerifyFailed
	}

	lhs, err := pub1.EncryptWithNonce(modN(pf.Z2, pub1.N()), pf.Wy)
	if err != nil {
		return ErrVerifyFailed
	}
	Cz1 := new(big.Int).Exp(C, pf.Z1, pub1.NSquare())
	lhs.Mul(lhs, Cz1)
	lhs.Mod(lhs, pub1.NSquare())
	De := new(big.Int).Exp(D, e, pub1.NSquare())
	rhs := new(big.Int).Mul(pf.A, De)
	rhs.Mod(rhs, pub1.NSquare())
	if lhs.Cmp(rhs) != 0 {
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

func affpChallenge(aux auxinfo.Context, n0, n1 *big.Int, ped *ringpedersen.PublicParams, C, D, X, Y, S, T, A, Bx, By, E, F *big.Int) *big.Int {
	return challengeSigned(aux, curve.Order(),
		n0.Bytes(), n1.Bytes(), ped.N().Bytes(), ped.S().Bytes(), ped.T().Bytes(),
		C.Bytes(), D.Bytes(), X.Bytes(), Y.Bytes(),
		S.Bytes(), T.Bytes(), A.Bytes(), Bx.Bytes(), By.Bytes(), E.Bytes(), F.Bytes())
}
