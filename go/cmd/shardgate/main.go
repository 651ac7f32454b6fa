/*
Copyright 2026 The Shardgate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// shardgate runs statements against a sharded set of databases described
// by a topology file.
package main

import (
	"os"

	"github.com/shardgate/shardgate/go/cmd/shardgate/command"
	"github.com/shardgate/shardgate/go/vt/log"
)

func main() {
	err := command.Root.Execute()
	log.Flush()
	if err != nil {
		os.Exit(1)
	}
}
