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
package paillier

import (
	"math/big"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestPaillier(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Paillier Suite")
}

const testPrimeBits = 128

var _ = Describe("Paillier", func() {
	var priv *PrivateKey

	BeforeEach(func() {
		var err error
		priv, err = GenerateKeyPair(testPrimeBits)
		Expect(err).NotTo(HaveOccurred())
	})

	It("decrypts what it encrypts", func() {
		m := big.NewInt(424242)
		c, _, err := priv.Encrypt(m)
		Expect(err).NotTo(HaveOccurred())

		got, err := priv.Decrypt(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Cmp(m)).To(Equal(0))
	})

	It("EncryptWithNonce is deterministic in the nonce", func() {
		m := big.NewInt(17)
		r := big.NewInt(123456789)
		c1, err := priv.PublicKey.EncryptWithNonce(m, r)
		Expect(err).NotTo(HaveOccurred())
		c2, err := priv.PublicKey.EncryptWithNonce(m, r)
		Expect(err).NotTo(HaveOccurred())
		Expect(c1.Cmp(c2)).To(Equal(0))

		got, err := priv.Decrypt(c1)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Cmp(m)).To(Equal(0))
	})

	It("is additively homomorphic under Add", func() {
		a := big.NewInt(30)
		b := big.NewInt(12)
		ca, _, err := priv.Encrypt(a)
		Expect(err).NotTo(HaveOccurred())
		cb, _, err := priv.Encrypt(b)
		Expect(err).NotTo(HaveOccurred())

		sum, err := priv.Add(ca, cb)
		Expect(err).NotTo(HaveOccurred())

		got, err := priv.Decrypt(sum)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Cmp(new(big.Int).Add(a, b))).To(Equal(0))
	})

	It("computes a*m under MulConst", func() {
		m := big.NewInt(9)
		a := big.NewInt(7)
		c, _, err := priv.Encrypt(m)
		Expect(err).NotTo(HaveOccurred())

		prod, err := priv.MulConst(c, a)
		Expect(err).NotTo(HaveOccurred())

		got, err := priv.Decrypt(prod)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Cmp(new(big.Int).Mul(a, m))).To(Equal(0))
	})

	It("computes a*m+b under AffineTransform", func() {
		m := big.NewInt(5)
		a := big.NewInt(3)
		b := big.NewInt(11)
		c, _, err := priv.Encrypt(m)
		Expect(err).NotTo(HaveOccurred())
		encB, _, err := priv.Encrypt(b)
		Expect(err).NotTo(HaveOccurred())

		affine, err := priv.AffineTransform(c, a, encB)
		Expect(err).NotTo(HaveOccurred())

		got, err := priv.Decrypt(affine)
		Expect(err).NotTo(HaveOccurred())
		want := new(big.Int).Add(new(big.Int).Mul(a, m), b)
		Expect(got.Cmp(want)).To(Equal(0))
	})

	It("DecryptCentered folds values above N/2 into the negative range", func() {
		nMinusOne := new(big.Int).Sub(priv.PublicKey.N(), big1)
		c, _, err := priv.Encrypt(nMinusOne)
		Expect(err).NotTo(HaveOccurred())

		got, err := priv.DecryptCentered(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Sign()).To(Equal(-1))
	})

	It("rejects a ciphertext outside the valid domain", func() {
		_, err := priv.Decrypt(big.NewInt(0))
		Expect(err).To(Equal(ErrInvalidCiphertext))
	})
})
