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
	"context"
	"errors"
	"sync"

	"github.com/getamis/sirius/log"
)

var (
	ErrOldMessage             = errors.New("transport: old message")
	ErrInvalidStateTransition = errors.New("transport: invalid state transition")
	ErrDupMsg                 = errors.New("transport: duplicate message")
	ErrUndefinedMessage       = errors.New("transport: undefined message type")
	ErrInvalidMessage         = errors.New("transport: invalid message")
	ErrFullChannel            = errors.New("transport: full channel")
)

// msgChans is the per-message-type inbox, one buffered channel per round
// so round k+1 messages that arrive early queue instead of blocking the
// sender (spec.md §5: "per-peer ordering between rounds is enforced by the
// inbox keying on (sender, recipient, round)"). Grounded on
// types/message/msg_chans.go.
type msgChans struct {
	chs map[MessageType]chan Message
}

func newMsgChans(bufferLen uint32, types ...MessageType) *msgChans {
	chs := make(map[MessageType]chan Message, len(types))
	for _, t := range types {
		chs[t] = make(chan Message, bufferLen)
	}
	return &msgChans{chs: chs}
}

func (m *msgChans) push(msg Message) error {
	ch, ok := m.chs[msg.GetMessageType()]
	if !ok {
		return ErrUndefinedMessage
	}
	if !msg.IsValid() {
		return ErrInvalidMessage
	}
	select {
	case ch <- msg:
		return nil
	default:
		return ErrFullChannel
	}
}

func (m *msgChans) pop(ctx context.Context, t MessageType) (Message, error) {
	ch, ok := m.chs[t]
	if !ok {
		return nil, ErrUndefinedMessage
	}
	select {
	case msg := <-ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MsgMain drives one party's round-based state machine: within a party the
// protocol is strictly sequential (spec.md §5), so a single goroutine pops
// the current round's messages, hands each to the active Handler, and on
// reaching the round's required count calls Finalize to advance. Grounded
// on types/message/msg_main.go.
type MsgMain struct {
	logger         log.Logger
	peerNum        uint32
	msgChs         *msgChans
	state          MainState
	currentHandler Handler
	listener       StateChangedListener

	lock   sync.RWMutex
	cancel context.CancelFunc
}

// NewMsgMain constructs a MsgMain for party id, tracking peerNum peers and
// starting from initHandler, with an inbox pre-sized for every round's
// MessageType this protocol run will ever see.
func NewMsgMain(id string, peerNum uint32, listener StateChangedListener, initHandler Handler, msgTypes ...MessageType) *MsgMain {
	return &MsgMain{
		logger:         log.New("self", id),
		peerNum:        peerNum,
		msgChs:         newMsgChans(peerNum, msgTypes...),
		state:          StateInit,
		currentHandler: initHandler,
		listener:       listener,
	}
}

// Start launches the message loop goroutine; safe to call at most once.
func (t *MsgMain) Start() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	go t.messageLoop(ctx) //nolint:errcheck
	t.cancel = cancel
}

// Stop cancels the message loop if running.
func (t *MsgMain) Stop() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
}

// AddMessage enqueues msg for processing, rejecting anything older than the
// round currently being handled.
func (t *MsgMain) AddMessage(senderID string, msg Message) error {
	currentType := t.currentHandler.MessageType()
	newType := msg.GetMessageType()
	if currentType > newType {
		t.logger.Debug("Ignore old message", "currentMsgType", currentType, "newMessageType", newType)
		return ErrOldMessage
	}
	return t.msgChs.push(msg)
}

// GetHandler returns the currently active round Handler.
func (t *MsgMain) GetHandler() Handler { return t.currentHandler }

// GetState returns the lifecycle state.
func (t *MsgMain) GetState() MainState { return t.state }

func (t *MsgMain) messageLoop(ctx context.Context) (err error) {
	defer func() {
		panicErr := recover()
		if err == nil && panicErr == nil {
			_ = t.setState(StateDone)
		} else {
			_ = t.setState(StateFailed)
		}
		t.Stop()
	}()

	handler := t.currentHandler
	msgType := handler.MessageType()
	msgCount := uint32(0)
	for {
		msg, err := t.msgChs.pop(ctx, msgType)
		if err != nil {
			t.logger.Warn("Failed to pop message", "err", err)
			return err
		}
		id := msg.GetId()
		logger := t.logger.New("msgType", msgType, "fromId", id)
		if handler.IsHandled(logger, id) {
			logger.Warn("The message is handled before")
			return ErrDupMsg
		}

		if err := handler.HandleMessage(logger, msg); err != nil {
			logger.Warn("Failed to save message", "err", err)
			return err
		}

		msgCount++
		if msgCount < handler.GetRequiredMessageCount() {
			continue
		}

		nextHandler, err := handler.Finalize(logger)
		if err != nil {
			logger.Warn("Failed to go to next handler", "err", err)
			return err
		}
		if nextHandler == nil {
			return nil
		}
		t.currentHandler = nextHandler
		handler = t.currentHandler
		newType := handler.MessageType()
		logger.Info("Change handler", "oldType", msgType, "newType", newType)
		msgType = newType
		msgCount = 0
	}
}

func (t *MsgMain) setState(newState MainState) error {
	if t.isInFinalState() {
		t.logger.Warn("Invalid state transition", "old", t.state, "new", newState)
		return ErrInvalidStateTransition
	}
	t.logger.Info("State changed", "old", t.state, "new", newState)
	oldState := t.state
	t.state = newState
	t.listener.OnStateChanged(oldState, newState)
	return nil
}

func (t *MsgMain) isInFinalState() bool {
	return t.state == StateFailed || t.state == StateDone
}
