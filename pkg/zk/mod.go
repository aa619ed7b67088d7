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
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/vaultmesh/tss-cmp/pkg/arith"
	"github.com/vaultmesh/tss-cmp/pkg/auxinfo"
)

const modFindNonResidueRetries = 256

// ModChallenges is the number of parallel Fiat-Shamir challenges ψ_mod runs,
// the teacher's MINIMALCHALLENGE (soundness error 2^-challenges).
const ModChallenges = 80

// ErrTooFewChallenges guards against a caller weakening the proof's
// soundness by requesting too few rounds.
var ErrTooFewChallenges = errors.New("zk: ψ_mod requires at least 80 challenges")

var (
	big4 = big.NewInt(4)
)

// ModProof is ψ_mod of spec.md §4.2 item 2: proves N is a Paillier-Blum
// modulus via the square-root/quadratic-residue protocol (Verify checks that
// N is odd and not prime, that z_i^N = y_i, and that x_i^4 = (-1)^a·w^b·y_i
// for every challenge y_i). Verify does not check N for small factors and
// does not establish that its prime factors are safe primes. Grounded on
// crypto/zkproof/paillier/blummodzkproof.go, with the teacher's
// math/rand.Seed-based y_i expansion — which leaks through a 64-bit seed
// and is not suitable as a cryptographic PRF — replaced by a SHA-512
// counter-mode expansion (see deriveY and expandBytes below).
type ModProof struct {
	W      *big.Int
	Rounds []ModRound
}

// ModRound is one of the ModChallenges parallel proof rounds.
type ModRound struct {
	X, A, B, Z *big.Int
}

// ProveMod builds ψ_mod for Paillier modulus n = p*q (p, q the safe primes).
func ProveMod(p, q, n *big.Int, aux auxinfo.Context) (*ModProof, error) {
	phiN := new(big.Int).Mul(new(big.Int).Sub(p, big1), new(big.Int).Sub(q, big1))
	invN := new(big.Int).ModInverse(n, phiN)
	if invN == nil {
		return nil, errors.New("zk: N not invertible mod φ(N)")
	}

	w, err := findNonResidue(n, p, q)
	if err != nil {
		return nil, err
	}

	rounds := make([]ModRound, ModChallenges)
	for i := 0; i < ModChallenges; i++ {
		y := deriveY(aux, n, w, i)
		a, b, x := fourthRoot(y, w, p, q, n)
		z := new(big.Int).Exp(y, invN, n)
		rounds[i] = ModRound{X: x, A: a, B: b, Z: z}
	}
	return &ModProof{W: w, Rounds: rounds}, nil
}

// Verify checks ψ_mod against the claimed modulus n, as spec.md §4.2 item 2
// describes ("standard Blum-prime square-root/quadratic-residue protocol").
func (pf *ModProof) Verify(n *big.Int, aux auxinfo.Context) error {
	if len(pf.Rounds) < ModChallenges {
		return ErrTooFewChallenges
	}
	if n.Bit(0) == 0 || n.ProbablyPrime(1) {
		return ErrVerifyFailed
	}
	for i, r := range pf.Rounds {
		y := deriveY(aux, n, pf.W, i)

		zn := new(big.Int).Exp(r.Z, n, n)
		if zn.Cmp(y) != 0 {
			return ErrVerifyFailed
		}

		rhs := new(big.Int).Set(y)
		if r.A.Cmp(big1) == 0 {
			rhs.Neg(rhs)
		}
		if r.B.Cmp(big1) == 0 {
			rhs.Mul(rhs, pf.W)
		}
		rhs.Mod(rhs, n)

		x4 := new(big.Int).Exp(r.X, big4, n)
		if x4.Cmp(rhs) != 0 {
			return ErrVerifyFailed
		}
	}
	return nil
}

// findNonResidue samples w in Z_N* with Jacobi(w, N) = -1, required so every
// round's y_i has a well-defined 4th root under one of the four sign/w
// combinations.
func findNonResidue(n, p, q *big.Int) (*big.Int, error) {
	for i := 0; i < modFindNonResidueRetries; i++ {
		w, err := arith.RandomCoprimeInt(n)
		if err != nil {
			return nil, err
		}
		if big.Jacobi(w, n) == -1 {
			return w, nil
		}
	}
	return nil, arith.ErrExceedMaxRetry
}

// deriveY expands a SHA-512 counter-mode stream keyed on (aux, n, w, round
// index) into a candidate y_i < n coprime to n, rejection-sampling the
// counter forward on collision. This replaces the teacher's
// math/rand.Seed(int64) PRNG, which only has 64 bits of internal state and
// is not appropriate for deriving a cryptographic Fiat-Shamir challenge.
func deriveY(aux auxinfo.Context, n, w *big.Int, round int) *big.Int {
	nBytes := (n.BitLen() + 7) / 8
	for ctr := uint32(0); ; ctr++ {
		seed := expandBytes(aux, n, w, round, ctr, nBytes)
		y := new(big.Int).SetBytes(seed)
		y.Mod(y, n)
		if y.Sign() != 0 && arith.IsCoprime(y, n) {
			return y
		}
	}
}

func expandBytes(aux auxinfo.Context, n, w *big.Int, round int, counter uint32, want int) []byte {
	out := make([]byte, 0, want+64)
	var block [4 + 4]byte
	binary.BigEndian.PutUint32(block[0:4], uint32(round))
	binary.BigEndian.PutUint32(block[4:8], counter)
	for i := uint32(0); len(out) < want; i++ {
		h := sha512.New()
		h.Write(aux.Bytes())
		h.Write(n.Bytes())
		h.Write(w.Bytes())
		h.Write(block[:])
		var ctrBuf [4]byte
		binary.BigEndian.PutUint32(ctrBuf[:], i)
		h.Write(ctrBuf[:])
		out = append(out, h.Sum(nil)...)
	}
	return out[:want]
}

// fourthRoot computes a, b in {0,1} and x with x^4 = (-1)^a * w^b * y mod n,
// assuming p ≡ q ≡ 3 (mod 4) (guaranteed since p, q are safe primes > 3).
func fourthRoot(y, w, p, q, n *big.Int) (a, b, x *big.Int) {
	yModP := new(big.Int).Mod(y, p)
	wModP := new(big.Int).Mod(w, p)
	yModQ := new(big.Int).Mod(y, q)
	wModQ := new(big.Int).Mod(w, q)

	jyp := big.Jacobi(yModP, p)
	jyq := big.Jacobi(yModQ, q)
	jwp := big.Jacobi(wModP, p)

	switch {
	case jyp == -1 && jyq == -1:
		a, b = big1, big0copy()
	case jyp == -1 && jyq != -1 && jwp == -1:
		a, b = big0copy(), big1
	case jyp == -1 && jyq != -1:
		a, b = big1, big1
	case jyp != -1 && jyq == -1 && jwp == -1:
		a, b = big1, big1
	case jyp != -1 && jyq == -1:
		a, b = big0copy(), big1
	default:
		a, b = big0copy(), big0copy()
	}

	rp := new(big.Int).Set(yModP)
	rq := new(big.Int).Set(yModQ)
	if a.Cmp(big1) == 0 {
		rp.Neg(rp)
		rq.Neg(rq)
	}
	if b.Cmp(big1) == 0 {
		rp.Mul(rp, wModP)
		rq.Mul(rq, wModQ)
	}
	rp.ModSqrt(rp, p)
	rp.ModSqrt(rp, p)
	rq.ModSqrt(rq, q)
	rq.ModSqrt(rq, q)

	u, v := new(big.Int), new(big.Int)
	new(big.Int).GCD(u, v, p, q)
	result := new(big.Int).Mul(new(big.Int).Mul(p, u), rq)
	result.Add(result, new(big.Int).Mul(new(big.Int).Mul(q, v), rp))
	result.Mod(result, n)
	return a, b, result
}

func big0copy() *big.Int { return big.NewInt(0) }
