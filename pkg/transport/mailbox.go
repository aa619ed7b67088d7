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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Mailbox is the demonstration transport spec.md §5 describes: a shared
// directory with one file per (sender, receiver, round), and one weighted
// semaphore of size 1 per file — created at zero, posted by the writer,
// waited on by the reader, unlinked after the read. Only this package's own
// tests drive it; cmd/tss-cmp's local simulation and the protocol test suites
// pass payloads in memory instead. spec.md explicitly calls it a toy, not
// something a real deployment reuses.
type Mailbox struct {
	dir  string
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewMailbox creates (if needed) dir and returns a Mailbox rooted there.
func NewMailbox(dir string) (*Mailbox, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Mailbox{dir: dir, sems: make(map[string]*semaphore.Weighted)}, nil
}

func slotKey(sender, receiver string, round int) string {
	return fmt.Sprintf("%s__%s__round%d", sender, receiver, round)
}

func (m *Mailbox) slotPath(key string) string {
	return filepath.Join(m.dir, key+".json")
}

// semFor returns the named semaphore for a (sender, receiver, round) slot,
// created at weight zero on first access so a receiver that calls Recv
// before any Send blocks until the Send happens.
func (m *Mailbox) semFor(key string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()
	sem, ok := m.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		sem.Acquire(context.Background(), 1) //nolint:errcheck // starts at zero
		m.sems[key] = sem
	}
	return sem
}

// envelope is the on-disk wire record: (sender, recipient, round, payload),
// per spec.md §6's wire format.
type envelope struct {
	Sender    string          `json:"sender"`
	Recipient string          `json:"recipient"`
	Round     int             `json:"round"`
	Payload   json.RawMessage `json:"payload"`
}

// Send writes payload to the (sender, receiver, round) slot and posts its
// semaphore, waking a blocked Recv.
func (m *Mailbox) Send(sender, receiver string, round int, payload interface{}) error {
	bs, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := envelope{Sender: sender, Recipient: receiver, Round: round, Payload: bs}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	key := slotKey(sender, receiver, round)
	if err := os.WriteFile(m.slotPath(key), data, 0o600); err != nil {
		return err
	}
	m.semFor(key).Release(1)
	return nil
}

// Recv blocks until sender has Send'd to receiver for round, then reads,
// unlinks the file, and drops the semaphore so the slot can be reused by a
// future session.
func (m *Mailbox) Recv(ctx context.Context, sender, receiver string, round int, out interface{}) error {
	key := slotKey(sender, receiver, round)
	sem := m.semFor(key)
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	path := m.slotPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sems, key)
	m.mu.Unlock()
	return json.Unmarshal(env.Payload, out)
}

// Broadcast sends payload from sender to every id in receivers at round.
func (m *Mailbox) Broadcast(sender string, receivers []string, round int, payload interface{}) error {
	for _, r := range receivers {
		if r == sender {
			continue
		}
		if err := m.Send(sender, r, round, payload); err != nil {
			return err
		}
	}
	return nil
}
