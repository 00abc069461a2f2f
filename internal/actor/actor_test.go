package actor

import (
	"encoding/binary"
	"math"
	"testing"

	"cvrextract/internal/script"
	"cvrextract/internal/symbols"
)

func TestAssembleUnknownAnimset(t *testing.T) {
	idx := symbols.NewIndex()
	actors := map[string]script.Actor{
		"hero": {Name: "hero", SkeletonSymbol: "heroskel", AnimsetName: "missing"},
	}
	results := Assemble(idx, noPath, noName, map[string]script.Animset{}, actors)
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("results = %+v, want one error result", results)
	}
}

func TestAssembleUnknownSkeleton(t *testing.T) {
	idx := symbols.NewIndex()
	animsets := map[string]script.Animset{"set1": {Name: "set1", Animations: []string{"walk"}}}
	actors := map[string]script.Actor{
		"hero": {Name: "hero", SkeletonSymbol: "heroskel", AnimsetName: "set1"},
	}
	results := Assemble(idx, noPath, noName, animsets, actors)
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("results = %+v, want one error result", results)
	}
}

func noPath(string) ([]byte, bool)         { return nil, false }
func noName(string, string) ([]byte, bool) { return nil, false }

func TestAssembleHappyPath(t *testing.T) {
	idx := symbols.NewIndex()
	idx.Skeletons["heroskel"] = "characters/hero.ssk"
	idx.Meshes["heroskel"] = "characters/hero.scf"

	skelBlob := buildSkeletonBlob()
	meshBlob := buildMeshBlob()
	animBlob := buildAnimBlob(1)

	byPath := func(p string) ([]byte, bool) {
		switch p {
		case "characters/hero.ssk":
			return skelBlob, true
		case "characters/hero.scf":
			return meshBlob, true
		}
		return nil, false
	}
	byName := func(stem, ext string) ([]byte, bool) {
		if stem == "walk" && ext == ".saf" {
			return animBlob, true
		}
		return nil, false
	}

	animsets := map[string]script.Animset{"set1": {Name: "set1", Animations: []string{"walk"}}}
	actors := map[string]script.Actor{
		"hero": {Name: "hero", SkeletonSymbol: "heroskel", AnimsetName: "set1"},
	}

	results := Assemble(idx, byPath, byName, animsets, actors)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("unexpected error: %v", results[0].Err)
	}
	doc := results[0].Doc
	if doc == nil {
		t.Fatal("expected a document")
	}
	if len(doc.Nodes) != 2 { // 1 bone node + 1 mesh node
		t.Errorf("got %d nodes, want 2", len(doc.Nodes))
	}
	if len(doc.Animations) != 1 {
		t.Errorf("got %d animations, want 1", len(doc.Animations))
	}
}

// TestAssembleSkipsMismatchedAnimationInAnimset covers an animset with one
// animation whose bone count disagrees with the actor's skeleton alongside
// one that matches: the mismatched animation must surface as an error
// result without aborting its sibling.
func TestAssembleSkipsMismatchedAnimationInAnimset(t *testing.T) {
	idx := symbols.NewIndex()
	idx.Skeletons["heroskel"] = "characters/hero.ssk"
	idx.Meshes["heroskel"] = "characters/hero.scf"

	skelBlob := buildSkeletonBlob() // 1-bone skeleton
	meshBlob := buildMeshBlob()
	walkBlob := buildAnimBlob(1) // matches the 1-bone skeleton
	runBlob := buildAnimBlob(2)  // implies 2 bones, mismatches the skeleton

	byPath := func(p string) ([]byte, bool) {
		switch p {
		case "characters/hero.ssk":
			return skelBlob, true
		case "characters/hero.scf":
			return meshBlob, true
		}
		return nil, false
	}
	byName := func(stem, ext string) ([]byte, bool) {
		switch {
		case stem == "walk" && ext == ".saf":
			return walkBlob, true
		case stem == "run" && ext == ".saf":
			return runBlob, true
		}
		return nil, false
	}

	animsets := map[string]script.Animset{"set1": {Name: "set1", Animations: []string{"walk", "run"}}}
	actors := map[string]script.Actor{
		"hero": {Name: "hero", SkeletonSymbol: "heroskel", AnimsetName: "set1"},
	}

	results := Assemble(idx, byPath, byName, animsets, actors)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	byAnim := make(map[string]Result, len(results))
	for _, r := range results {
		byAnim[r.Animation] = r
	}

	walk, ok := byAnim["walk"]
	if !ok {
		t.Fatal("missing result for animation \"walk\"")
	}
	if walk.Err != nil {
		t.Errorf("walk: unexpected error: %v", walk.Err)
	}
	if walk.Doc == nil {
		t.Error("walk: expected a document")
	}

	run, ok := byAnim["run"]
	if !ok {
		t.Fatal("missing result for animation \"run\"")
	}
	if run.Err == nil {
		t.Error("run: expected a bone-count-mismatch error, got nil")
	}
	if run.Doc != nil {
		t.Error("run: expected no document on error")
	}
}

func putU32(b []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(b, tmp...)
}

func putF32(b []byte, v float32) []byte {
	return putU32(b, math.Float32bits(v))
}

func padName(s string) []byte {
	b := make([]byte, 32)
	copy(b, s)
	return b
}

// buildSkeletonBlob builds a 1-bone SSK with no children.
func buildSkeletonBlob() []byte {
	var blob []byte
	blob = putU32(blob, 1) // nbones
	blob = append(blob, make([]byte, 4*4)...)
	blob = append(blob, padName("heroskel")...)

	blob = append(blob, padName("root")...)
	blob = putU32(blob, 0)
	for i := 0; i < 21; i++ {
		blob = putF32(blob, 0)
	}
	blob = append(blob, make([]byte, 96)...)
	blob = putU32(blob, 0) // nchildren
	blob = putU32(blob, 0) // reserved

	return blob
}

// buildMeshBlob builds a 1-vertex, 0-strip mesh.
func buildMeshBlob() []byte {
	var blob []byte
	header := make([]uint32, 15)
	header[0] = 1 // nverts
	header[1] = 0 // strip count
	for _, h := range header {
		blob = putU32(blob, h)
	}
	blob = append(blob, make([]byte, 54*4)...)
	blob = append(blob, padName("heroskel")...)
	blob = append(blob, make([]byte, 13*4)...)

	blob = putF32(blob, 0)
	blob = putF32(blob, 0)
	blob = putF32(blob, 0)
	blob = putF32(blob, 1)
	blob = putF32(blob, 0)
	blob = putF32(blob, 1)
	blob = putF32(blob, 0)
	blob = putF32(blob, 1)
	// nverts*12 + stripCount*4 == 12 bytes of unknown per-vertex data
	blob = append(blob, make([]byte, 12)...)
	return blob
}

// buildAnimBlob builds a SAF whose offset table implies boneCount bones,
// with one real keyframe (plus the two sentinels Parse strips).
func buildAnimBlob(boneCount int) []byte {
	var blob []byte
	blob = append(blob, padName("walk")...)
	blob = append(blob, []byte{0, 0, 0, 0}...) // flags
	blob = putF32(blob, 30)                    // fps
	blob = putU32(blob, 1)                     // version
	count := 1
	blob = putU32(blob, uint32(count))

	nOffsets := count + 2
	for i := 0; i < nOffsets; i++ {
		blob = putU32(blob, uint32(i*((boneCount+1)*16)))
	}
	for i := 0; i < nOffsets; i++ {
		blob = putU32(blob, uint32(i*10))
		for b := 0; b < boneCount; b++ {
			blob = putF32(blob, 0)
			blob = putF32(blob, 0)
			blob = putF32(blob, 0)
			blob = putF32(blob, 1)
		}
		blob = putF32(blob, 0)
		blob = putF32(blob, 0)
		blob = putF32(blob, 0)
		blob = putF32(blob, 0)
	}
	return blob
}
