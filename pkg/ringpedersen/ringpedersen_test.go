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
package ringpedersen

import (
	"math/big"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/vaultmesh/tss-cmp/pkg/arith"
)

func TestRingPedersen(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RingPedersen Suite")
}

const testPrimeBits = 128

var _ = Describe("RingPedersen", func() {
	var (
		priv *PrivateParams
		p, q *big.Int
		n    *big.Int
	)

	BeforeEach(func() {
		var err error
		p, err = arith.SafePrime(testPrimeBits)
		Expect(err).NotTo(HaveOccurred())
		q, err = arith.SafePrime(testPrimeBits)
		Expect(err).NotTo(HaveOccurred())
		n = new(big.Int).Mul(p, q)
		priv, err = Generate(n, p, q)
		Expect(err).NotTo(HaveOccurred())
	})

	It("satisfies s = t^lambda mod N", func() {
		got := new(big.Int).Exp(priv.T(), priv.Lambda(), priv.N())
		Expect(got.Cmp(priv.S())).To(Equal(0))
	})

	It("produces distinct commitments for distinct openings", func() {
		c1 := priv.Commit(big.NewInt(5), big.NewInt(7))
		c2 := priv.Commit(big.NewInt(5), big.NewInt(8))
		Expect(c1.Cmp(c2)).NotTo(Equal(0))
	})

	It("accepts negative x and r via modular exponentiation", func() {
		c1 := priv.Commit(big.NewInt(-5), big.NewInt(-7))
		c2 := priv.Commit(big.NewInt(-5), big.NewInt(-7))
		Expect(c1.Cmp(c2)).To(Equal(0))
		Expect(c1.Sign()).To(BeNumerically(">=", 0))
	})

	It("rejects a public triple whose s is not coprime to N", func() {
		_, err := NewPublicParams(n, n, priv.T())
		Expect(err).To(Equal(ErrInvalidParameters))
	})
})
