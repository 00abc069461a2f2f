// Package smt loads material (SMT) files: an ordered list of texture tags
// and per-slot colour parameters.
package smt

import (
	"fmt"

	"cvrextract/internal/breader"
)

const minLength = 120

// Param is one material slot's colour parameters.
type Param struct {
	Flag       uint32
	A, B, C, D [3]float32
}

// Material is a parsed SMT file.
type Material struct {
	Name   string
	Tags   []string
	Params []Param
}

// ErrMalformed is returned for files shorter than the minimum valid
// length (§7: "Malformed material").
var ErrMalformed = fmt.Errorf("smt: malformed material (file too short)")

// Load parses an SMT blob into an ordered list of texture tags and
// per-slot colour parameters.
func Load(data []byte) (*Material, error) {
	if len(data) < minLength {
		return nil, ErrMalformed
	}

	r := breader.New(data)
	name := r.FixedASCII(32)
	count := int(r.U32())
	if count < 0 {
		return nil, fmt.Errorf("smt: negative slot count")
	}

	params := make([]Param, count)
	for i := 0; i < count; i++ {
		if !r.Remaining(4 + 48) {
			return nil, ErrMalformed
		}
		params[i] = Param{
			Flag: r.U32(),
			A:    readVec3(r),
			B:    readVec3(r),
			C:    readVec3(r),
			D:    readVec3(r),
		}
	}

	tags := make([]string, count)
	for i := 0; i < count; i++ {
		if !r.Remaining(32) {
			return nil, ErrMalformed
		}
		tags[i] = r.FixedASCII(32)
	}

	return &Material{Name: name, Tags: tags, Params: params}, nil
}

// Placeholder returns the placeholder material emitted when a referenced
// SMT file is missing or malformed (§7).
func Placeholder() *Material {
	return &Material{Name: "ERROR"}
}

func readVec3(r *breader.Reader) [3]float32 {
	return [3]float32{r.F32(), r.F32(), r.F32()}
}
