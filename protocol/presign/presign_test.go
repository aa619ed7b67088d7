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
package presign

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/vaultmesh/tss-cmp/pkg/party"
	"github.com/vaultmesh/tss-cmp/protocol/keygen"
	"github.com/vaultmesh/tss-cmp/protocol/refresh"
)

func TestPresign(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Presign Suite")
}

// testPrimeBits must give a Paillier N above 2^1282: Round3 decrypts
// k*gamma - beta with |beta| < 2^1280 centered into (-N/2, N/2].
const testPrimeBits = 768

func bootstrapGroup(ids []party.ID) map[party.ID]*party.Party {
	sid := []byte("presign-test-sid")
	keygenSessions := make(map[party.ID]*keygen.Session, len(ids))
	parties := make(map[party.ID]*party.Party, len(ids))
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

	return parties
}

func runPresign(parties map[party.ID]*party.Party, ids []party.ID) (map[party.ID]*Session, error) {
	sessions := make(map[party.ID]*Session, len(ids))
	for _, id := range ids {
		sessions[id] = NewSession(parties[id])
	}

	round1 := make(map[party.ID]*Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := sessions[id].Round1()
		if err != nil {
			return nil, err
		}
		round1[id] = r1
	}
	round2 := make(map[party.ID]*Round2Payload, len(ids))
	for _, id := range ids {
		r2, err := sessions[id].Round2(round1)
		if err != nil {
			return nil, err
		}
		round2[id] = r2
	}
	round3 := make(map[party.ID]*Round3Payload, len(ids))
	for _, id := range ids {
		r3, err := sessions[id].Round3(round1, round2)
		if err != nil {
			return nil, err
		}
		round3[id] = r3
	}
	for _, id := range ids {
		if err := sessions[id].Round4(round1, round3); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

var _ = Describe("Presign", func() {
	It("derives the same nonce commitment R for every party", func() {
		ids := []party.ID{"alice", "bob", "carol"}
		parties := bootstrapGroup(ids)

		sessions, err := runPresign(parties, ids)
		Expect(err).NotTo(HaveOccurred())

		want := sessions[ids[0]].SharePoint()
		for _, id := range ids[1:] {
			Expect(sessions[id].SharePoint().Equal(want)).To(BeTrue())
		}
	})

	It("produces k_i/chi_i consistent with g^delta == sum(Delta_j)", func() {
		ids := []party.ID{"alice", "bob"}
		parties := bootstrapGroup(ids)

		sessions, err := runPresign(parties, ids)
		Expect(err).NotTo(HaveOccurred())

		for _, id := range ids {
			Expect(sessions[id].ShareK()).NotTo(BeNil())
			Expect(sessions[id].ShareChi()).NotTo(BeNil())
			Expect(sessions[id].SharePoint()).NotTo(BeNil())
		}
	})

	It("rejects a tampered psi_enc proof", func() {
		ids := []party.ID{"alice", "bob", "carol"}
		parties := bootstrapGroup(ids)

		sessions := make(map[party.ID]*Session, len(ids))
		for _, id := range ids {
			sessions[id] = NewSession(parties[id])
		}
		round1 := make(map[party.ID]*Round1Payload, len(ids))
		for _, id := range ids {
			r1, err := sessions[id].Round1()
			Expect(err).NotTo(HaveOccurred())
			round1[id] = r1
		}
		// Swap alice's K so bob verifies carol's proof against the wrong
		// ciphertext; this must fail verification rather than silently pass.
		round1["alice"].K, round1["carol"].K = round1["carol"].K, round1["alice"].K

		_, err := sessions["bob"].Round2(round1)
		Expect(err).To(HaveOccurred())
	})
})
