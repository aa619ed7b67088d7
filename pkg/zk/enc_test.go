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
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/vaultmesh/tss-cmp/pkg/arith"
	"github.com/vaultmesh/tss-cmp/pkg/auxinfo"
	"github.com/vaultmesh/tss-cmp/pkg/paillier"
	"github.com/vaultmesh/tss-cmp/pkg/ringpedersen"
)

func TestZK(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ZK Suite")
}

const testPrimeBits = 256

var _ = Describe("EncProof", func() {
	var (
		priv *paillier.PrivateKey
		ped  *ringpedersen.PrivateParams
		aux  auxinfo.Context
	)

	BeforeEach(func() {
		var err error
		priv, err = paillier.GenerateKeyPair(testPrimeBits)
		Expect(err).NotTo(HaveOccurred())
		pedP, pedQ, err := arith.SafePrimePair(testPrimeBits)
		Expect(err).NotTo(HaveOccurred())
		pedN := new(big.Int).Mul(pedP, pedQ)
		ped, err = ringpedersen.Generate(pedN, pedP, pedQ)
		Expect(err).NotTo(HaveOccurred())
		aux = auxinfo.Context{SidHash: []byte("sid"), ProverID: "alice"}
	})

	It("verifies a genuine proof", func() {
		k := big.NewInt(12345)
		K, nonce, err := priv.Encrypt(k)
		Expect(err).NotTo(HaveOccurred())

		proof, err := ProveEnc(priv.PublicKey, ped.PublicParams, K, k, nonce, aux)
		Expect(err).NotTo(HaveOccurred())

		Expect(proof.Verify(priv.PublicKey, ped.PublicParams, K, aux)).To(Succeed())
	})

	It("rejects a proof checked against the wrong ciphertext", func() {
		k := big.NewInt(777)
		K, nonce, err := priv.Encrypt(k)
		Expect(err).NotTo(HaveOccurred())

		proof, err := ProveEnc(priv.PublicKey, ped.PublicParams, K, k, nonce, aux)
		Expect(err).NotTo(HaveOccurred())

		otherK, _, err := priv.Encrypt(big.NewInt(778))
		Expect(err).NotTo(HaveOccurred())

		Expect(proof.Verify(priv.PublicKey, ped.PublicParams, otherK, aux)).To(HaveOccurred())
	})

	It("rejects a proof checked under a different session context", func() {
		k := big.NewInt(42)
		K, nonce, err := priv.Encrypt(k)
		Expect(err).NotTo(HaveOccurred())

		proof, err := ProveEnc(priv.PublicKey, ped.PublicParams, K, k, nonce, aux)
		Expect(err).NotTo(HaveOccurred())

		otherAux := auxinfo.Context{SidHash: []byte("other-sid"), ProverID: "alice"}
		Expect(proof.Verify(priv.PublicKey, ped.PublicParams, K, otherAux)).To(HaveOccurred())
	})
})
