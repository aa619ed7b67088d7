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

// Command tss-cmp drives a local n-party simulation of key-gen, refresh,
// pre-signing, and signing, grounded on example/cggmp/main.go's cobra root
// command. It does not open network sockets: every party runs in this one
// process and round payloads are passed directly between in-memory session
// objects, which is enough to exercise the whole protocol end to end
// without standing up libp2p hosts.
package main

import (
	"os"

	"github.com/getamis/sirius/log"

	"github.com/vaultmesh/tss-cmp/cmd/tss-cmp/cli"
)

func main() {
	if err := cli.Root().Execute(); err != nil {
		log.Crit("tss-cmp failed", "err", err)
		os.Exit(1)
	}
}
