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

package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xlab/treeprint"
)

// PrimitiveDescription is used to create a serializable representation
// of the Primitive tree.
type PrimitiveDescription struct {
	OperatorType string
	Variant      string
	Other        map[string]any
	Inputs       []PrimitiveDescription
}

// PrimitiveToPlanDescription transforms a primitive tree into a
// corresponding PrimitiveDescription tree.
func PrimitiveToPlanDescription(in Primitive) PrimitiveDescription {
	this := in.description()
	for _, input := range in.Inputs() {
		this.Inputs = append(this.Inputs, PrimitiveToPlanDescription(input))
	}
	return this
}

// String renders the description as a single line.
func (pd PrimitiveDescription) String() string {
	var b strings.Builder
	b.WriteString(pd.OperatorType)
	if pd.Variant != "" {
		b.WriteString(" (")
		b.WriteString(pd.Variant)
		b.WriteString(")")
	}
	keys := make([]string, 0, len(pd.Other))
	for k := range pd.Other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, pd.Other[k])
	}
	return b.String()
}

// ToTree renders the primitive tree of a plan for EXPLAIN output.
func ToTree(in Primitive) string {
	return asTree(PrimitiveToPlanDescription(in), nil).String()
}

func asTree(pd PrimitiveDescription, root treeprint.Tree) treeprint.Tree {
	var branch treeprint.Tree
	if root == nil {
		branch = treeprint.NewWithRoot(pd.String())
	} else {
		branch = root.AddBranch(pd.String())
	}
	for _, child := range pd.Inputs {
		asTree(child, branch)
	}
	return branch
}
