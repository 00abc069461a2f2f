// Package ssn loads skin (SSN) files: per-bone simple bindings and
// multiplexed (blended) vertex bindings.
package ssn

import (
	"fmt"

	"cvrextract/internal/breader"
)

const headerFields = 7 // u32 fields preceding the 32-byte skin name

// SimpleBinding applies to a contiguous run of vertices rigidly bound to
// one bone.
type SimpleBinding struct {
	Bone         uint32
	VertexCount  uint32
	VertexOffset uint32
}

// MultiplexBinding blends up to three bones by weight for one run of
// vertices.
type MultiplexBinding struct {
	Count   uint32
	Bones   [3]uint32
	Weights [3]float32
}

// Skin is a parsed SSN file.
type Skin struct {
	Name   string
	Simple []SimpleBinding
	Multi  []MultiplexBinding
}

// Load parses an SSN blob. Per spec.md §4.5, header fields 3 and 4 (0-indexed
// 2 and 3) hold the simple-binding count and the multiplexed-binding count
// respectively; the remaining five header fields are unknown/reserved —
// see DESIGN.md for this indexing decision.
func Load(data []byte) (*Skin, error) {
	r := breader.New(data)
	if !r.Remaining(headerFields*4 + 32) {
		return nil, fmt.Errorf("ssn: truncated header")
	}

	var header [headerFields]uint32
	for i := range header {
		header[i] = r.U32()
	}
	name := r.FixedASCII(32)

	count := int(header[2])
	multiplexed := int(header[3])
	if count < 0 || multiplexed < 0 {
		return nil, fmt.Errorf("ssn: negative binding count")
	}

	simple := make([]SimpleBinding, count)
	for i := 0; i < count; i++ {
		if !r.Remaining(12) {
			return nil, fmt.Errorf("ssn: truncated simple binding %d", i)
		}
		simple[i] = SimpleBinding{
			Bone:         r.U32(),
			VertexCount:  r.U32(),
			VertexOffset: r.U32(),
		}
	}

	const multiRecSize = 4 + 3*4 + 3*4 + 64
	multi := make([]MultiplexBinding, multiplexed)
	for i := 0; i < multiplexed; i++ {
		if !r.Remaining(multiRecSize) {
			return nil, fmt.Errorf("ssn: truncated multiplex binding %d", i)
		}
		mb := MultiplexBinding{Count: r.U32()}
		for k := 0; k < 3; k++ {
			mb.Bones[k] = r.U32()
		}
		for k := 0; k < 3; k++ {
			mb.Weights[k] = r.F32()
		}
		r.Skip(64) // unused offsets
		multi[i] = mb
	}

	return &Skin{Name: name, Simple: simple, Multi: multi}, nil
}

// TotalVertices returns the sum of simple VertexCounts plus multiplex
// Counts, which per spec.md §8 must equal the mesh's nverts.
func (s *Skin) TotalVertices() int {
	total := 0
	for _, b := range s.Simple {
		total += int(b.VertexCount)
	}
	for _, m := range s.Multi {
		total += int(m.Count)
	}
	return total
}
