// Package ssk loads skeleton (SSK) files: an ordered bone list with
// per-bone name, local transform, and a flattened child-index hierarchy.
package ssk

import (
	"fmt"

	"cvrextract/internal/breader"
)

const (
	headerFields    = 5 // u32 fields preceding the 32-byte skeleton name
	transformFloats = 21
	bonePadding     = 96
)

// Bone is one skeleton joint. Transform holds the raw 21-float partial
// affine matrix; Translation is its first three floats, used as the glTF
// node translation per spec.md §3.
type Bone struct {
	Name        string
	Index       uint32
	Transform   [transformFloats]float32
	Translation [3]float32
	Children    []int
}

// Skeleton is a parsed SSK file: root first, every child index refers to
// a bone appearing later in the list.
type Skeleton struct {
	Name  string
	Bones []Bone
}

// Load parses an SSK blob. The header's leading u32 is taken as the bone
// count; the remaining four header fields are unknown/reserved (spec.md
// §4.4 does not name individual header fields — see DESIGN.md).
func Load(data []byte) (*Skeleton, error) {
	r := breader.New(data)
	if !r.Remaining(headerFields*4 + 32) {
		return nil, fmt.Errorf("ssk: truncated header")
	}
	nbones := int(r.U32())
	r.Skip((headerFields - 1) * 4)
	name := r.FixedASCII(32)

	if nbones < 0 {
		return nil, fmt.Errorf("ssk: negative bone count")
	}

	bones := make([]Bone, nbones)
	childCounts := make([]int, nbones)

	const boneRecSize = 32 + 4 + transformFloats*4 + bonePadding + 4 + 4
	for i := 0; i < nbones; i++ {
		if !r.Remaining(boneRecSize) {
			return nil, fmt.Errorf("ssk: truncated bone record %d", i)
		}
		tag := r.FixedASCII(32)
		idx := r.U32()

		var xform [transformFloats]float32
		for k := range xform {
			xform[k] = r.F32()
		}
		r.Skip(bonePadding)

		nchildren := int(r.U32())
		r.Skip(4) // reserved

		if nchildren < 0 {
			return nil, fmt.Errorf("ssk: negative child count for bone %d", i)
		}

		bones[i] = Bone{
			Name:        tag,
			Index:       idx,
			Transform:   xform,
			Translation: [3]float32{xform[0], xform[1], xform[2]},
		}
		childCounts[i] = nchildren
	}

	for i := range bones {
		n := childCounts[i]
		if !r.Remaining(n * 4) {
			return nil, fmt.Errorf("ssk: truncated hierarchy list for bone %d", i)
		}
		children := make([]int, n)
		for k := 0; k < n; k++ {
			children[k] = int(r.U32())
		}
		bones[i].Children = children
	}

	return &Skeleton{Name: name, Bones: bones}, nil
}
