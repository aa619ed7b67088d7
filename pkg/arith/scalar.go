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

// Package arith collects the modular-integer helpers every layer above it
// depends on: sampling, range checks, centering and gcd/lcm utilities over
// math/big. None of it is curve- or Paillier-specific; scalar.go is the L0
// layer of spec.md §2.
package arith

import (
	"crypto/rand"
	"errors"
	"math/big"
)

var (
	// ErrNotInRange is returned when a checked value falls outside [floor, ceil).
	ErrNotInRange = errors.New("arith: value not in range")
	// ErrEmptyInput is returned for degenerate zero-length requests.
	ErrEmptyInput = errors.New("arith: empty input")
	// ErrExceedMaxRetry is returned when rejection sampling fails to converge.
	ErrExceedMaxRetry = errors.New("arith: exceeded max retries")

	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)

	maxRejectionRetries = 256
)

// RandomInt draws uniformly from [0, n).
func RandomInt(n *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, n)
}

// RandomPositiveInt draws uniformly from [1, n).
func RandomPositiveInt(n *big.Int) (*big.Int, error) {
	x, err := RandomInt(new(big.Int).Sub(n, big1))
	if err != nil {
		return nil, err
	}
	return x.Add(x, big1), nil
}

// RandomInRange draws uniformly from the symmetric range [-bound, bound),
// i.e. "± bound" as spec.md writes it for ZKP masking values.
func RandomInRange(bound *big.Int) (*big.Int, error) {
	twoBound := new(big.Int).Lsh(bound, 1)
	v, err := RandomInt(twoBound)
	if err != nil {
		return nil, err
	}
	return v.Sub(v, bound), nil
}

// RandomCoprimeInt draws uniformly from [2, n) subject to gcd(r, n) = 1.
func RandomCoprimeInt(n *big.Int) (*big.Int, error) {
	if n.Cmp(big2) <= 0 {
		return nil, ErrNotInRange
	}
	for i := 0; i < maxRejectionRetries; i++ {
		r, err := RandomInt(n)
		if err != nil {
			return nil, err
		}
		if r.Cmp(big1) <= 0 {
			continue
		}
		if IsCoprime(r, n) {
			return r, nil
		}
	}
	return nil, ErrExceedMaxRetry
}

// IsCoprime reports whether gcd(a, b) == 1.
func IsCoprime(a, b *big.Int) bool {
	return new(big.Int).GCD(nil, nil, a, b).Cmp(big1) == 0
}

// Lcm returns the least common multiple of a and b.
func Lcm(a, b *big.Int) *big.Int {
	gcd := new(big.Int).GCD(nil, nil, a, b)
	t := new(big.Int).Div(a, gcd)
	return t.Mul(t, b)
}

// InRange reports whether floor <= v < ceil.
func InRange(v, floor, ceil *big.Int) error {
	if v.Cmp(floor) < 0 || v.Cmp(ceil) >= 0 {
		return ErrNotInRange
	}
	return nil
}

// InAbsRange reports whether |v| <= bound.
func InAbsRange(v, bound *big.Int) error {
	if new(big.Int).Abs(v).Cmp(bound) > 0 {
		return ErrNotInRange
	}
	return nil
}

// Center maps v (assumed in [0, m)) into the symmetric residue range
// (-m/2, m/2], matching spec.md §4.1's centering helper used on Paillier
// plaintexts before they are treated as signed scalars.
func Center(v, m *big.Int) *big.Int {
	r := new(big.Int).Mod(v, m)
	half := new(big.Int).Rsh(m, 1)
	if r.Cmp(half) > 0 {
		r.Sub(r, m)
	}
	return r
}

// ModSymmetric reduces v into (-m/2, m/2], accepting an already-signed v
// (unlike Center, which first reduces into [0, m)).
func ModSymmetric(v, m *big.Int) *big.Int {
	return Center(new(big.Int).Mod(v, m), m)
}

// GenRandomBytes returns n cryptographically random bytes.
func GenRandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrEmptyInput
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// XORBytes XORs equal-length byte slices together, used to combine the
// per-party srid/rho contributions into a single shared random identifier.
func XORBytes(parts ...[]byte) []byte {
	if len(parts) == 0 {
		return nil
	}
	out := make([]byte, len(parts[0]))
	copy(out, parts[0])
	for _, p := range parts[1:] {
		for i := range out {
			out[i] ^= p[i]
		}
	}
	return out
}
