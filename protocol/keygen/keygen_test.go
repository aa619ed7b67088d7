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
package keygen

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/vaultmesh/tss-cmp/pkg/curve"
	"github.com/vaultmesh/tss-cmp/pkg/party"
)

func TestKeygen(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Keygen Suite")
}

func newGroup(ids []party.ID) map[party.ID]*Session {
	sid := []byte("keygen-test-sid")
	sessions := make(map[party.ID]*Session, len(ids))
	for _, id := range ids {
		sessions[id] = NewSession(party.New(id, sid, ids))
	}
	return sessions
}

// runKeygen drives every party's Session through all four rounds of
// spec.md §4.3 against each other, as a local in-memory simulation (the
// same sequencing cmd/tss-cmp's demo command runs in one process).
func runKeygen(sessions map[party.ID]*Session, ids []party.ID) error {
	round1 := make(map[party.ID]*Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := sessions[id].Round1()
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

var _ = Describe("Keygen", func() {
	It("produces a consistent aggregate public key across every party", func() {
		ids := []party.ID{"alice", "bob", "carol"}
		sessions := newGroup(ids)

		Expect(runKeygen(sessions, ids)).To(Succeed())

		var want *curve.Point
		for _, id := range ids {
			pub, err := sessions[id].p.AggregatePublicKey()
			Expect(err).NotTo(HaveOccurred())
			if want == nil {
				want = pub
			} else {
				Expect(pub.Equal(want)).To(BeTrue())
			}
		}
	})

	It("binds every party to the same sid_hash after round 4", func() {
		ids := []party.ID{"alice", "bob", "carol", "dave"}
		sessions := newGroup(ids)

		Expect(runKeygen(sessions, ids)).To(Succeed())

		want := sessions[ids[0]].p.SidHash
		for _, id := range ids[1:] {
			Expect(sessions[id].p.SidHash).To(Equal(want))
		}
	})

	It("rejects a Schnorr proof forged for the wrong prover id", func() {
		ids := []party.ID{"alice", "bob", "carol"}
		sessions := newGroup(ids)

		round1 := make(map[party.ID]*Round1Payload, len(ids))
		for _, id := range ids {
			r1, err := sessions[id].Round1()
			Expect(err).NotTo(HaveOccurred())
			round1[id] = r1
		}
		round2 := make(map[party.ID]*Round2Payload, len(ids))
		for _, id := range ids {
			r2, err := sessions[id].Round2(round1)
			Expect(err).NotTo(HaveOccurred())
			round2[id] = r2
		}
		round3 := make(map[party.ID]*Round3Payload, len(ids))
		for _, id := range ids {
			r3, err := sessions[id].Round3(round1, round2)
			Expect(err).NotTo(HaveOccurred())
			round3[id] = r3
		}

		// Swap two proofs so bob's proof is attributed to alice's X: the
		// Fiat-Shamir binding to prover_id must make this fail verification.
		round3["alice"], round3["bob"] = round3["bob"], round3["alice"]

		err := sessions["carol"].Round4(round3)
		Expect(err).To(MatchError(ErrSchnorrVerifyFailed))
	})

	It("rejects a mismatched echo broadcast", func() {
		ids := []party.ID{"alice", "bob", "carol"}
		sessions := newGroup(ids)

		round1 := make(map[party.ID]*Round1Payload, len(ids))
		for _, id := range ids {
			r1, err := sessions[id].Round1()
			Expect(err).NotTo(HaveOccurred())
			round1[id] = r1
		}
		round2 := make(map[party.ID]*Round2Payload, len(ids))
		for _, id := range ids {
			r2, err := sessions[id].Round2(round1)
			Expect(err).NotTo(HaveOccurred())
			round2[id] = r2
		}
		round2["bob"].Echo = []byte("tampered")

		_, err := sessions["alice"].Round3(round1, round2)
		Expect(err).To(MatchError(ErrEchoMismatch))
	})
})
