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

// EncProof is ψ_enc of spec.md §4.2 item 4: proves a Paillier ciphertext K
// encrypts a plaintext k with |k| < 2^(L+Epsilon), verified against a
// verifier-chosen Ring-Pedersen base so the range check does not itself leak
// k. Grounded on crypto/zkproof/paillier/encrangezkproof.go.
type EncProof struct {
	S, A, C  *big.Int
	Z1       *big.Int
	Z2       *big.Int
	Z3       *big.Int
}

// ProveEnc proves that ciphertext K = EncryptWithNonce(pub, k, rho) encrypts
// k in range, under verifier Ring-Pedersen parameters ped.
func ProveEnc(pub *paillier.PublicKey, ped *ringpedersen.PublicParams, K, k, rho *big.Int, aux auxinfo.Context) (*EncProof, error) {
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

	S := ped.Commit(k, mu)
	A, err := pub.EncryptWithNonce(modN(alpha, pub.N()), r)
	if err != nil {
		return nil, err
	}
	C := ped.Commit(alpha, gamma)

	e := encChallenge(aux, K, pub.N(), ped, S, A, C)

	z1 := new(big.Int).Mul(e, k)
	z1.Add(z1, alpha)
	z2 := new(big.Int).Exp(rho, e, pub.N())
	z2.Mul(z2, r)
	z2.Mod(z2, pub.N())
	z3 := new(big.Int).Mul(e, mu)
	z3.Add(z3, gamma)

	return &EncProof{S: S, A: A, C: C, Z1: z1, Z2: z2, Z3: z3}, nil
}

// Verify checks ψ_enc against ciphertext K, as spec.md §4.2 item 4 describes.
func (pf *EncProof) Verify(pub *paillier.PublicKey, ped *ringpedersen.PublicParams, K *big.Int, aux auxinfo.Context) error {
	if !arith.IsCoprime(pf.S, ped.N()) || !arith.IsCoprime(pf.C, ped.N()) {
		return ErrVerifyFailed
	}
	if err := arith.InRange(pf.Z2, big0, pub.N()); err != nil {
		return ErrVerifyFailed
	}
	if err := arith.InAbsRange(pf.Z1, TwoExpLEps()); err != nil {
		return ErrVerifyFailed
	}

	e := encChallenge(aux, K, pub.N(), ped, pf.S, pf.A, pf.C)

	lhs, err := pub.EncryptWithNonce(modN(pf.Z1, pub.N()), pf.Z2)
	if err != nil {
		return ErrVerifyFailed
	}
	Ke := new(big.Int).Exp(K, e, pub.NSquare())
	rhs := new(big.Int).Mul(pf.A, Ke)
	rhs.Mod(rhs, pub.NSquare())
	if lhs.Cmp(rhs) != 0 {
		return ErrVerifyFailed
	}

	lhsPed := ped.Commit(pf.Z1, pf.Z3)
	Se := new(big.Int).Exp(pf.S, e, ped.N())
	rhsPed := new(big.Int).Mul(pf.C, Se)
	rhsPed.Mod(rhsPed, ped.N())
	if lhsPed.Cmp(rhsPed) != 0 {
		return ErrVerifyFailed
	}
	return nil
}

func encChallenge(aux auxinfo.Context, K, proverN *big.Int, ped *ringpedersen.PublicParams, S, A, C *big.Int) *big.Int {
	return challengeSigned(aux, curve.Order(), K.Bytes(), proverN.Bytes(), ped.N().Bytes(), ped.S().Bytes(), ped.T().Bytes(), S.Bytes(), A.Bytes(), C.Bytes())
}

func modN(v, n *big.Int) *big.Int {
	m := new(big.Int).Mod(v, n)
	return m
}
