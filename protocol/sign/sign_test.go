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
package sign

import (
	"math/big"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/vaultmesh/tss-cmp/pkg/curve"
	"github.com/vaultmesh/tss-cmp/pkg/party"
	"github.com/vaultmesh/tss-cmp/protocol/keygen"
	"github.com/vaultmesh/tss-cmp/protocol/presign"
	"github.com/vaultmesh/tss-cmp/protocol/refresh"
)

func TestSign(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sign Suite")
}

// testPrimeBits must give a Paillier N above 2^1282, as presign's Round3
// decrypts k*gamma - beta with |beta| < 2^1280 centered into (-N/2, N/2].
const testPrimeBits = 768

// runFullProtocol drives key-gen, refresh, and pre-signing for the given
// group and returns each party's finished presign.Session alongside the
// joint aggregate public key, the same sequence spec.md §2's data-flow
// paragraph describes end to end.
func runFullProtocol(ids []party.ID) (map[party.ID]*presign.Session, *curve.Point) {
	sid := []byte("sign-test-sid")
	parties := make(map[party.ID]*party.Party, len(ids))
	keygenSessions := make(map[party.ID]*keygen.Session, len(ids))
	for _, id := range ids {
		p := party.New(id, sid, ids)
		parties[id] = p
		keygenSessions[id] = keygen.NewSession(p)
	}

	kr1 := make(map[party.ID]*keygen.Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := keygenSessions[id].Round1()
		Expect(err).NotTo(HaveOccurred())
		kr1[id] = r1
	}
	kr2 := make(map[party.ID]*keygen.Round2Payload, len(ids))
	for _, id := range ids {
		r2, err := keygenSessions[id].Round2(kr1)
		Expect(err).NotTo(HaveOccurred())
		kr2[id] = r2
	}
	kr3 := make(map[party.ID]*keygen.Round3Payload, len(ids))
	for _, id := range ids {
		r3, err := keygenSessions[id].Round3(kr1, kr2)
		Expect(err).NotTo(HaveOccurred())
		kr3[id] = r3
	}
	for _, id := range ids {
		Expect(keygenSessions[id].Round4(kr3)).To(Succeed())
	}

	refreshSessions := make(map[party.ID]*refresh.Session, len(ids))
	for _, id := range ids {
		refreshSessions[id] = refresh.NewSession(parties[id])
	}
	rr1 := make(map[party.ID]*refresh.Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := refreshSessions[id].Round1(testPrimeBits)
		Expect(err).NotTo(HaveOccurred())
		rr1[id] = r1
	}
	rr2 := make(map[party.ID]*refresh.Round2Payload, len(ids))
	for _, id := range ids {
		r2, err := refreshSessions[id].Round2(rr1)
		Expect(err).NotTo(HaveOccurred())
		rr2[id] = r2
	}
	rr3 := make(map[party.ID]*refresh.Round3Payload, len(ids))
	for _, id := range ids {
		r3, err := refreshSessions[id].Round3(rr1, rr2)
		Expect(err).NotTo(HaveOccurred())
		rr3[id] = r3
	}
	for _, id := range ids {
		Expect(refreshSessions[id].Round4(rr3)).To(Succeed())
	}

	pubKey, err := parties[ids[0]].AggregatePublicKey()
	Expect(err).NotTo(HaveOccurred())

	presignSessions := make(map[party.ID]*presign.Session, len(ids))
	for _, id := range ids {
		presignSessions[id] = presign.NewSession(parties[id])
	}
	pr1 := make(map[party.ID]*presign.Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := presignSessions[id].Round1()
		Expect(err).NotTo(HaveOccurred())
		pr1[id] = r1
	}
	pr2 := make(map[party.ID]*presign.Round2Payload, len(ids))
	for _, id := range ids {
		r2, err := presignSessions[id].Round2(pr1)
		Expect(err).NotTo(HaveOccurred())
		pr2[id] = r2
	}
	pr3 := make(map[party.ID]*presign.Round3Payload, len(ids))
	for _, id := range ids {
		r3, err := presignSessions[id].Round3(pr1, pr2)
		Expect(err).NotTo(HaveOccurred())
		pr3[id] = r3
	}
	for _, id := range ids {
		Expect(presignSessions[id].Round4(pr1, pr3)).To(Succeed())
	}

	return presignSessions, pubKey
}

var _ = Describe("Sign", func() {
	It("combines per-party shares into a signature that verifies against the aggregate public key", func() {
		ids := []party.ID{"alice", "bob", "carol"}
		presignSessions, pubKey := runFullProtocol(ids)

		m := new(big.Int).SetBytes([]byte("hello"))

		var r *big.Int
		shares := make([]*big.Int, 0, len(ids))
		for _, id := range ids {
			sess := presignSessions[id]
			shareR, sigma := Share(sess.ShareK(), sess.ShareChi(), sess.SharePoint(), m)
			if r == nil {
				r = shareR
			} else {
				Expect(shareR.Cmp(r)).To(Equal(0))
			}
			shares = append(shares, sigma)
		}

		result, err := Combine(pubKey, m, r, shares)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.R.Cmp(r)).To(Equal(0))
	})
})
