package anim

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func putU32(b []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(b, tmp...)
}

func putF32(b []byte, v float32) []byte {
	return putU32(b, math.Float32bits(v))
}

// buildBlob constructs a minimal SAF blob with boneCount bones and
// count+2 keyframes (count real, plus 2 sentinels), no events, no
// per-bone translation table.
func buildBlob(boneCount int, count int) []byte {
	return buildBlobWithFlags(boneCount, count, 0, false, false)
}

// buildBlobWithFlags is buildBlob generalized to optionally append an
// events block and/or a full per-bone translation table, matching
// whichever of eventsFlag/fullPositions is set in flags.
func buildBlobWithFlags(boneCount, count int, flags byte, withEvents, withFullPositions bool) []byte {
	var blob []byte
	blob = append(blob, make([]byte, 32)...) // name
	blob = append(blob, []byte{flags, 0, 0, 0}...)
	blob = putF32(blob, 30) // fps
	blob = putU32(blob, 1)  // version
	blob = putU32(blob, uint32(count))

	nOffsets := count + 2
	// offsets[1]-offsets[0] = (boneCount+1)*16, so implied bone count == boneCount.
	offsets := make([]uint32, nOffsets)
	for i := range offsets {
		offsets[i] = uint32(i * ((boneCount + 1) * 16))
	}
	for _, off := range offsets {
		blob = putU32(blob, off)
	}

	for i := 0; i < nOffsets; i++ {
		blob = putU32(blob, uint32(i*10)) // time
		for b := 0; b < boneCount; b++ {
			blob = putF32(blob, 0)
			blob = putF32(blob, 0)
			blob = putF32(blob, 0)
			blob = putF32(blob, 1)
		}
		blob = putF32(blob, float32(i)) // root trans x
		blob = putF32(blob, 0)
		blob = putF32(blob, 0)
		blob = putF32(blob, 0)
	}

	if withEvents {
		blob = putU32(blob, 0) // nevents
		blob = putU32(blob, 0) // reserved
	}

	if withFullPositions {
		for i := 0; i < nOffsets; i++ {
			for b := 0; b < boneCount; b++ {
				blob = putF32(blob, float32(i)) // x
				blob = putF32(blob, 0)          // y
				blob = putF32(blob, 0)          // z
				blob = putF32(blob, 0)          // dropped 4th component
			}
		}
	}

	return blob
}

func TestParseStripsSentinelKeyframes(t *testing.T) {
	blob := buildBlob(2, 2)
	a, err := Parse(blob, 2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(a.Keyframes) != 2 {
		t.Fatalf("got %d keyframes, want 2 (sentinels stripped)", len(a.Keyframes))
	}
	if a.BoneCount != 2 {
		t.Errorf("BoneCount = %d, want 2", a.BoneCount)
	}
}

func TestParseBoneCountMismatch(t *testing.T) {
	blob := buildBlob(2, 2)
	_, err := Parse(blob, 3)
	if !errors.Is(err, ErrBoneCountMismatch) {
		t.Fatalf("err = %v, want ErrBoneCountMismatch", err)
	}
}

func TestParseFullPositions(t *testing.T) {
	blob := buildBlobWithFlags(2, 2, fullPositions, false, true)
	a, err := Parse(blob, 2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(a.Keyframes) != 2 {
		t.Fatalf("got %d keyframes, want 2 (sentinels stripped)", len(a.Keyframes))
	}
	for i, kf := range a.Keyframes {
		if kf.BoneTrans == nil {
			t.Fatalf("keyframe %d: BoneTrans = nil, want per-bone translations", i)
		}
		if len(kf.BoneTrans) != 2 {
			t.Fatalf("keyframe %d: got %d bone translations, want 2", i, len(kf.BoneTrans))
		}
	}
	// Sentinel stripping makes Keyframes[i] the blob's keyframe i+1, whose
	// x == i+1 per buildBlobWithFlags's fill pattern.
	if got := a.Keyframes[0].BoneTrans[0][0]; got != 1 {
		t.Errorf("keyframe 0 bone 0 x = %v, want 1", got)
	}
}

func TestParseEventsAndFullPositions(t *testing.T) {
	blob := buildBlobWithFlags(2, 2, eventsFlag|fullPositions, true, true)
	a, err := Parse(blob, 2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(a.Keyframes) != 2 {
		t.Fatalf("got %d keyframes, want 2 (sentinels stripped)", len(a.Keyframes))
	}
	for i, kf := range a.Keyframes {
		if kf.BoneTrans == nil {
			t.Fatalf("keyframe %d: BoneTrans = nil, want per-bone translations (events skipped, full positions present)", i)
		}
	}
}
