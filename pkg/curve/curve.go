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

// Package curve fixes the single elliptic curve this system runs over
// (secp256k1, per spec §6) and exposes the group-law primitives the rest of
// the protocol needs: point addition, scalar multiplication, and compressed
// serialization. Every party, every ZKP and every round uses this package
// instead of talking to btcec directly; the one exception is protocol/sign,
// which hands btcec.S256() to crypto/ecdsa for the final signature check.
package curve

import (
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

var (
	// ErrInvalidPoint is returned when a point fails to decode or is not on the curve.
	ErrInvalidPoint = errors.New("invalid point encoding")

	s256 = btcec.S256()

	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

// Order returns q, the prime order of the group (and the ECDSA scalar field).
func Order() *big.Int {
	return new(big.Int).Set(s256.N)
}

// Point is an element of the secp256k1 group. The zero value is the identity
// element; Identity(), Base() and NewPoint construct points explicitly.
type Point struct {
	x, y *big.Int // nil, nil means the identity element
}

// Identity returns the group's identity element (point at infinity).
func Identity() *Point {
	return &Point{}
}

// Base returns the generator g.
func Base() *Point {
	return &Point{x: new(big.Int).Set(s256.Gx), y: new(big.Int).Set(s256.Gy)}
}

// NewPoint validates (x, y) lies on the curve and wraps it.
func NewPoint(x, y *big.Int) (*Point, error) {
	if x == nil && y == nil {
		return Identity(), nil
	}
	if x == nil || y == nil || !s256.IsOnCurve(x, y) {
		return nil, ErrInvalidPoint
	}
	return &Point{x: new(big.Int).Set(x), y: new(big.Int).Set(y)}, nil
}

// IsIdentity reports whether p is the point at infinity.
func (p *Point) IsIdentity() bool {
	return p.x == nil && p.y == nil
}

// X returns the affine x-coordinate, or nil for the identity.
func (p *Point) X() *big.Int {
	if p.IsIdentity() {
		return nil
	}
	return new(big.Int).Set(p.x)
}

// Y returns the affine y-coordinate, or nil for the identity.
func (p *Point) Y() *big.Int {
	if p.IsIdentity() {
		return nil
	}
	return new(big.Int).Set(p.y)
}

// Add computes p + other on the curve. Either operand may be the identity.
func (p *Point) Add(other *Point) *Point {
	if p.IsIdentity() {
		return other.Copy()
	}
	if other.IsIdentity() {
		return p.Copy()
	}
	if p.x.Cmp(other.x) == 0 {
		sum := new(big.Int).Add(p.y, other.y)
		sum.Mod(sum, s256.P)
		if sum.Sign() == 0 {
			return Identity()
		}
	}
	x, y := s256.Add(p.x, p.y, other.x, other.y)
	return &Point{x: x, y: y}
}

// ScalarMult computes k*p, reducing k mod the group order first.
func (p *Point) ScalarMult(k *big.Int) *Point {
	kModN := new(big.Int).Mod(k, s256.N)
	if p.IsIdentity() || kModN.Sign() == 0 {
		return Identity()
	}
	x, y := s256.ScalarMult(p.x, p.y, kModN.Bytes())
	return &Point{x: x, y: y}
}

// ScalarBaseMult computes k*g.
func ScalarBaseMult(k *big.Int) *Point {
	return Base().ScalarMult(k)
}

// CombinePoints computes Σ scalar_i * point_i, the building block for
// "initial + base·exp" composition used throughout the protocol rounds.
func CombinePoints(scalars []*big.Int, points []*Point) (*Point, error) {
	if len(scalars) != len(points) {
		return nil, errors.New("curve: mismatched scalar/point slice lengths")
	}
	acc := Identity()
	for i := range scalars {
		acc = acc.Add(points[i].ScalarMult(scalars[i]))
	}
	return acc, nil
}

// Neg returns -p.
func (p *Point) Neg() *Point {
	if p.IsIdentity() {
		return Identity()
	}
	negY := new(big.Int).Neg(p.y)
	negY.Mod(negY, s256.P)
	return &Point{x: new(big.Int).Set(p.x), y: negY}
}

// Copy returns a deep copy of p.
func (p *Point) Copy() *Point {
	if p.IsIdentity() {
		return Identity()
	}
	return &Point{x: new(big.Int).Set(p.x), y: new(big.Int).Set(p.y)}
}

// Equal reports whether p and other represent the same group element.
func (p *Point) Equal(other *Point) bool {
	if p.IsIdentity() || other.IsIdentity() {
		return p.IsIdentity() == other.IsIdentity()
	}
	return p.x.Cmp(other.x) == 0 && p.y.Cmp(other.y) == 0
}

// Bytes returns the SEC1 compressed encoding (33 bytes, or 1 zero byte for
// the identity, per spec §6 "group points are compressed").
func (p *Point) Bytes() []byte {
	if p.IsIdentity() {
		return []byte{0x00}
	}
	out := make([]byte, 33)
	if p.y.Bit(0) == 0 {
		out[0] = 0x02
	} else {
		out[0] = 0x03
	}
	p.x.FillBytes(out[1:])
	return out
}

// FromBytes decodes a compressed point as produced by Bytes.
func FromBytes(b []byte) (*Point, error) {
	if len(b) == 1 && b[0] == 0x00 {
		return Identity(), nil
	}
	if len(b) != 33 {
		return nil, ErrInvalidPoint
	}
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	ecdsaPub := pub.ToECDSA()
	return NewPoint(ecdsaPub.X, ecdsaPub.Y)
}
