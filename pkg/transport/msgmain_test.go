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
package transport

import (
	"encoding/json"
	"sync"

	"github.com/getamis/sirius/log"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const fakeRoundOne MessageType = 1

type fakeMessage struct {
	ID    string `json:"id"`
	Round int    `json:"round"`
	Valid bool   `json:"-"`
}

func (m *fakeMessage) GetId() string               { return m.ID }
func (m *fakeMessage) GetMessageType() MessageType { return fakeRoundOne }
func (m *fakeMessage) IsValid() bool               { return m.Valid }

// fakeHandler collects fakeRoundOne messages and finalizes once it has seen
// one from every expected id: the simplest single-round Handler that
// exercises MsgMain's collect-then-finalize cycle.
type fakeHandler struct {
	mu       sync.Mutex
	required uint32
	seen     map[string]bool
	finalRan bool
}

func newFakeHandler(required uint32) *fakeHandler {
	return &fakeHandler{required: required, seen: make(map[string]bool)}
}

func (h *fakeHandler) MessageType() MessageType        { return fakeRoundOne }
func (h *fakeHandler) GetRequiredMessageCount() uint32 { return h.required }
func (h *fakeHandler) IsHandled(logger log.Logger, id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seen[id]
}
func (h *fakeHandler) HandleMessage(logger log.Logger, msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[msg.GetId()] = true
	return nil
}
func (h *fakeHandler) Finalize(logger log.Logger) (Handler, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finalRan = true
	return nil, nil
}

type fakeListener struct {
	mu   sync.Mutex
	seen []MainState
}

func (l *fakeListener) OnStateChanged(old, new MainState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, new)
}

var _ = Describe("MsgMain", func() {
	It("finalizes once every peer's message for the round has arrived", func() {
		handler := newFakeHandler(2)
		listener := &fakeListener{}
		main := NewMsgMain("self", 2, listener, handler, fakeRoundOne)
		main.Start()
		defer main.Stop()

		Expect(main.AddMessage("alice", &fakeMessage{ID: "alice", Valid: true})).To(Succeed())
		Expect(main.AddMessage("bob", &fakeMessage{ID: "bob", Valid: true})).To(Succeed())

		Eventually(func() bool {
			handler.mu.Lock()
			defer handler.mu.Unlock()
			return handler.finalRan
		}).Should(BeTrue())
		Eventually(func() MainState { return main.GetState() }).Should(Equal(StateDone))
	})

	It("rejects a message older than the handler currently in progress", func() {
		handler := &staleAwareHandler{fakeHandler: newFakeHandler(1), advertise: fakeRoundOne + 1}
		listener := &fakeListener{}
		main := NewMsgMain("self", 1, listener, handler, fakeRoundOne, fakeRoundOne+1)

		err := main.AddMessage("alice", &fakeMessage{ID: "alice", Valid: true})
		Expect(err).To(Equal(ErrOldMessage))
	})
})

// staleAwareHandler lets the second spec advertise a MessageType ahead of
// whatever fakeMessage reports, without needing a second concrete Handler.
type staleAwareHandler struct {
	*fakeHandler
	advertise MessageType
}

func (h *staleAwareHandler) MessageType() MessageType { return h.advertise }

type fakeEchoMessage struct {
	fakeMessage
}

func (m *fakeEchoMessage) GetEchoMessage() Message { return m }
func (m *fakeEchoMessage) MarshalBinary() ([]byte, error) {
	return json.Marshal(m.fakeMessage)
}

type recordingMessageMain struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingMessageMain) AddMessage(senderID string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, senderID)
	return nil
}
func (r *recordingMessageMain) GetHandler() Handler   { return nil }
func (r *recordingMessageMain) GetState() MainState   { return StateInit }
func (r *recordingMessageMain) Start()                {}
func (r *recordingMessageMain) Stop()                 {}

type fakePeerManager struct {
	self string
	ids  []string
}

func (p *fakePeerManager) NumPeers() uint32    { return uint32(len(p.ids)) }
func (p *fakePeerManager) PeerIDs() []string   { return p.ids }
func (p *fakePeerManager) SelfID() string      { return p.self }
func (p *fakePeerManager) MustSend(id string, msg Message) {}

var _ = Describe("EchoMsgMain", func() {
	It("forwards to the wrapped MessageMain only once every peer has echoed", func() {
		inner := &recordingMessageMain{}
		pm := &fakePeerManager{self: "bob", ids: []string{"bob", "carol"}}
		echo := NewEchoMsgMain(inner, pm)

		msg := &fakeEchoMessage{fakeMessage: fakeMessage{ID: "bob", Valid: true}}
		Expect(echo.AddMessage("bob", msg)).To(Succeed())
		Expect(echo.AddMessage("carol", msg)).To(Succeed())

		Eventually(func() int {
			inner.mu.Lock()
			defer inner.mu.Unlock()
			return len(inner.calls)
		}).Should(Equal(1))
	})

	It("rejects a non-echo message", func() {
		inner := &recordingMessageMain{}
		pm := &fakePeerManager{self: "bob", ids: []string{"bob", "carol"}}
		echo := NewEchoMsgMain(inner, pm)

		err := echo.AddMessage("bob", &fakeMessage{ID: "bob", Valid: true})
		Expect(err).To(Equal(ErrNotEchoMsg))
	})
})
