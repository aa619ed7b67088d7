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

package cli

import (
	"fmt"
	"math/big"

	"github.com/getamis/sirius/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaultmesh/tss-cmp/pkg/paillier"
	"github.com/vaultmesh/tss-cmp/pkg/party"
	"github.com/vaultmesh/tss-cmp/protocol/keygen"
	"github.com/vaultmesh/tss-cmp/protocol/presign"
	"github.com/vaultmesh/tss-cmp/protocol/refresh"
	"github.com/vaultmesh/tss-cmp/protocol/sign"
)

// demoCmd runs the entire protocol — key-gen, refresh, pre-signing, and
// signing — for a small local group in one process, round by round, the
// same sequencing the protocol/* test suites drive in memory. It exists to
// give a reader something runnable that touches every package; a real
// deployment would replace the direct session calls below with a
// transport.Handler driven over a network connection instead.
func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run key-gen, refresh, pre-signing, and signing for a local party group",
		RunE: func(cmd *cobra.Command, args []string) error {
			parties := viper.GetStringSlice("parties")
			if len(parties) == 0 {
				parties = []string{"alice", "bob", "carol"}
			}
			message := viper.GetString("message")
			if message == "" {
				message = "hello"
			}
			primeBits := viper.GetInt("prime-bits")
			if primeBits == 0 {
				primeBits = paillier.ModulusBits
			}
			return runDemo(parties, message, primeBits)
		},
	}
	cmd.Flags().StringSlice("parties", nil, "party ids (default: alice,bob,carol)")
	cmd.Flags().String("message", "", "message to sign (default: hello)")
	cmd.Flags().Int("prime-bits", 0, "Paillier prime bit length (default: production size)")
	return cmd
}

func runDemo(ids []party.ID, message string, primeBits int) error {
	sid := []byte("tss-cmp-demo-sid")
	parties := make(map[party.ID]*party.Party, len(ids))
	keygenSessions := make(map[party.ID]*keygen.Session, len(ids))
	for _, id := range ids {
		p := party.New(id, sid, ids)
		parties[id] = p
		keygenSessions[id] = keygen.NewSession(p)
	}

	log.Info("running key-generation", "parties", ids)
	kr1 := make(map[party.ID]*keygen.Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := keygenSessions[id].Round1()
		if err != nil {
			return err
		}
		kr1[id] = r1
	}
	kr2 := make(map[party.ID]*keygen.Round2Payload, len(ids))
	for _, id := range ids {
		r2, err := keygenSessions[id].Round2(kr1)
		if err != nil {
			return err
		}
		kr2[id] = r2
	}
	kr3 := make(map[party.ID]*keygen.Round3Payload, len(ids))
	for _, id := range ids {
		r3, err := keygenSessions[id].Round3(kr1, kr2)
		if err != nil {
			return err
		}
		kr3[id] = r3
	}
	for _, id := range ids {
		if err := keygenSessions[id].Round4(kr3); err != nil {
			return err
		}
	}

	log.Info("running refresh & aux-info", "primeBits", primeBits)
	refreshSessions := make(map[party.ID]*refresh.Session, len(ids))
	for _, id := range ids {
		refreshSessions[id] = refresh.NewSession(parties[id])
	}
	rr1 := make(map[party.ID]*refresh.Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := refreshSessions[id].Round1(primeBits)
		if err != nil {
			return err
		}
		rr1[id] = r1
	}
	rr2 := make(map[party.ID]*refresh.Round2Payload, len(ids))
	for _, id := range ids {
		r2, err := refreshSessions[id].Round2(rr1)
		if err != nil {
			return err
		}
		rr2[id] = r2
	}
	rr3 := make(map[party.ID]*refresh.Round3Payload, len(ids))
	for _, id := range ids {
		r3, err := refreshSessions[id].Round3(rr1, rr2)
		if err != nil {
			return err
		}
		rr3[id] = r3
	}
	for _, id := range ids {
		if err := refreshSessions[id].Round4(rr3); err != nil {
			return err
		}
	}

	pubKey, err := parties[ids[0]].AggregatePublicKey()
	if err != nil {
		return err
	}
	log.Info("aggregate public key derived", "x", pubKey.X().String(), "y", pubKey.Y().String())

	log.Info("running pre-signing")
	presignSessions := make(map[party.ID]*presign.Session, len(ids))
	for _, id := range ids {
		presignSessions[id] = presign.NewSession(parties[id])
	}
	pr1 := make(map[party.ID]*presign.Round1Payload, len(ids))
	for _, id := range ids {
		r1, err := presignSessions[id].Round1()
		if err != nil {
			return err
		}
		pr1[id] = r1
	}
	pr2 := make(map[party.ID]*presign.Round2Payload, len(ids))
	for _, id := range ids {
		r2, err := presignSessions[id].Round2(pr1)
		if err != nil {
			return err
		}
		pr2[id] = r2
	}
	pr3 := make(map[party.ID]*presign.Round3Payload, len(ids))
	for _, id := range ids {
		r3, err := presignSessions[id].Round3(pr1, pr2)
		if err != nil {
			return err
		}
		pr3[id] = r3
	}
	for _, id := range ids {
		if err := presignSessions[id].Round4(pr1, pr3); err != nil {
			return err
		}
	}

	log.Info("computing signature shares", "message", message)
	m := new(big.Int).SetBytes([]byte(message))
	var r *big.Int
	shares := make([]*big.Int, 0, len(ids))
	for _, id := range ids {
		sess := presignSessions[id]
		shareR, sigma := sign.Share(sess.ShareK(), sess.ShareChi(), sess.SharePoint(), m)
		r = shareR
		shares = append(shares, sigma)
	}

	result, err := sign.Combine(pubKey, m, r, shares)
	if err != nil {
		return err
	}

	fmt.Printf("signature: r=%s s=%s\n", result.R.String(), result.S.String())
	return nil
}
