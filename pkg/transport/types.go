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

// Package transport holds a round-based message-passing framework: the
// per-round state machine (MsgMain), the echo-broadcast wrapper that enforces
// round-2 consistency (EchoMsgMain), and a filesystem-mailbox demonstrator
// transport. The protocol/* packages do not import it; their rounds are plain
// functions over in-memory payload maps. Grounded
// on types/types.go and types/message/{msg_main,msg_main_echo,msg_chans}.go.
package transport

import "github.com/getamis/sirius/log"

// PeerManager abstracts away how messages physically reach other parties,
// per spec.md §9's "transport is an injected interface" design note.
type PeerManager interface {
	NumPeers() uint32
	PeerIDs() []string
	SelfID() string
	MustSend(id string, msg Message)
}

// Handler drives one round: it collects exactly GetRequiredMessageCount
// messages of its MessageType, then Finalize is called to compute the
// round's outputs and hand back the next round's Handler (nil if this was
// the protocol's final round).
type Handler interface {
	MessageType() MessageType
	GetRequiredMessageCount() uint32
	IsHandled(logger log.Logger, id string) bool
	HandleMessage(logger log.Logger, msg Message) error
	Finalize(logger log.Logger) (Handler, error)
}

// MessageType identifies which round a Message belongs to.
type MessageType int32

// Message is the minimal envelope every round payload implements.
type Message interface {
	GetId() string
	GetMessageType() MessageType
	IsValid() bool
}

// MessageMain is the per-party round-advancing state machine.
type MessageMain interface {
	AddMessage(senderID string, msg Message) error
	GetHandler() Handler
	GetState() MainState
	Start()
	Stop()
}

// MainState is MessageMain's lifecycle state.
type MainState uint32

const (
	StateInit   MainState = 0
	StateDone   MainState = 10
	StateFailed MainState = 20
)

func (m MainState) String() string {
	switch m {
	case StateInit:
		return "Init"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// StateChangedListener is notified of every MessageMain state transition;
// MsgMain calls it when it moves to Done or Failed (spec.md §5's
// "supplemented" StateChangedListener pattern, SPEC_FULL.md §5).
type StateChangedListener interface {
	OnStateChanged(oldState, newState MainState)
}
