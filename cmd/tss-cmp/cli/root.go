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

// Package cli wires up the tss-cmp command tree, grounded on
// example/cggmp/main.go's cobra root command.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Root returns the tss-cmp command tree.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "tss-cmp",
		Short: "Local simulation of the threshold-ECDSA key-gen/refresh/presign/sign protocol",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
	}
	root.AddCommand(demoCmd())
	return root
}
