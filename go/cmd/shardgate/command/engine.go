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

package command

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shardgate/shardgate/go/vt/vtgate"
)

// withEngine runs f against an open engine and closes the engine
// afterwards.
func withEngine(cmd *cobra.Command, f func(ctx context.Context, e *vtgate.Engine) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeEngine(ctx, e, cmd.OutOrStdout()); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return f(ctx, e)
}
