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
package commitment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitAndDecommit(t *testing.T) {
	c, err := New([]byte("round-1 payload"))
	require.NoError(t, err)

	ok := c.Commitment().Decommit(c.Decommitment())
	assert.NoError(t, ok)
}

func TestDecommitRejectsTamperedData(t *testing.T) {
	c, err := New([]byte("round-1 payload"))
	require.NoError(t, err)

	dec := c.Decommitment()
	dec.Data = []byte("tampered payload")

	err = c.Commitment().Decommit(dec)
	assert.ErrorIs(t, err, ErrDifferentDigest)
}

func TestFromBytesRoundTrips(t *testing.T) {
	c, err := New([]byte("payload"))
	require.NoError(t, err)

	restored := FromBytes(c.Commitment().Bytes())
	assert.NoError(t, restored.Decommit(c.Decommitment()))
}
