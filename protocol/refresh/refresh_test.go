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
package refresh

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/vaultmesh/tss-cmp/pkg/curve"
	"github.com/vaultmesh/tss-cmp/pkg/party"
	"github.com/vaultmesh/tss-cmp/protocol/keygen"
)

func TestRefresh(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Refresh Suite")
}

// testPrimeBits is far below a production modulus. Round 4 decrypts each
// reshare (a scalar below the curve order q) centered into (-N/2, N/2], so
// N must exceed 2q; 256-bit primes give an N of about 511 bits.
const testPrimeBits = 256

func runKeygenGroup(ids []party.ID) map[party.ID]*party.Party {
	sid := []byte("refresh-test-sid")
	sessions := make(map[party.ID]*keygen.Session, len(ids))
	parties := make(map[party.ID]*party.Party, len(ids))
	for _, id := range ids {
		p := party.New(id, sid, ids)
		parties[id] = p
		sessions[id] = keygen.NewSession(p)
	}

	round1 := make(map[party.ID]*keygen.Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := sessions[id].Round1()
		Expect(err).NotTo(HaveOccurred())
		round1[id] = r1
	}
	round2 := make(map[party.ID]*keygen.Round2Payload, len(ids))
	for _, id := range ids {
		r2, err := sessions[id].Round2(round1)
		Expect(err).NotTo(HaveOccurred())
		round2[id] = r2
	}
	round3 := make(map[party.ID]*keygen.Round3Payload, len(ids))
	for _, id := range ids {
		r3, err := sessions[id].Round3(round1, round2)
		Expect(err).NotTo(HaveOccurred())
		round3[id] = r3
	}
	for _, id := range ids {
		Expect(sessions[id].Round4(round3)).To(Succeed())
	}
	return parties
}

func runRefresh(parties map[party.ID]*party.Party, ids []party.ID) error {
	sessions := make(map[party.ID]*Session, len(ids))
	for _, id := range ids {
		sessions[id] = NewSession(parties[id])
	}

	round1 := make(map[party.ID]*Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := sessions[id].Round1(testPrimeBits)
		if err != nil {
			return err
		}
		round1[id] = r1
	}
	round2 := make(map[party.ID]*Round2Payload, len(ids))
	for _, id := range ids {
		r2, err := sessions[id].Round2(round1)
		if err != nil {
			return err
		}
		round2[id] = r2
	}
	round3 := make(map[party.ID]*Round3Payload, len(ids))
	for _, id := range ids {
		r3, err := sessions[id].Round3(round1, round2)
		if err != nil {
			return err
		}
		round3[id] = r3
	}
	for _, id := range ids {
		if err := sessions[id].Round4(round3); err != nil {
			return err
		}
	}
	return nil
}

var _ = Describe("Refresh", func() {
	It("preserves the aggregate public key across a refresh", func() {
		ids := []party.ID{"alice", "bob", "carol"}
		parties := runKeygenGroup(ids)

		before, err := parties[ids[0]].AggregatePublicKey()
		Expect(err).NotTo(HaveOccurred())

		Expect(runRefresh(parties, ids)).To(Succeed())

		for _, id := range ids {
			after, err := parties[id].AggregatePublicKey()
			Expect(err).NotTo(HaveOccurred())
			Expect(after.Equal(before)).To(BeTrue())
		}
	})

	It("rotates every party's own share and public key consistently", func() {
		ids := []party.ID{"alice", "bob", "carol"}
		parties := runKeygenGroup(ids)

		Expect(runRefresh(parties, ids)).To(Succeed())

		for _, id := range ids {
			self, err := parties[id].Peer(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(curve.ScalarBaseMult(parties[id].X).Equal(self.X)).To(BeTrue())
		}
	})

	It("installs fresh Paillier and Ring-Pedersen material for every peer", func() {
		ids := []party.ID{"alice", "bob"}
		parties := runKeygenGroup(ids)

		Expect(runRefresh(parties, ids)).To(Succeed())

		for _, id := range ids {
			peer, err := parties["alice"].Peer(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(peer.PaillierPub).NotTo(BeNil())
			Expect(peer.RingPedersen).NotTo(BeNil())
		}
	})
})
