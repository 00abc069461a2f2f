package ssn

import (
	"encoding/binary"
	"math"
	"testing"
)

func putU32(b []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(b, tmp...)
}

func putF32(b []byte, v float32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, math.Float32bits(v))
	return append(b, tmp...)
}

func padName(s string) []byte {
	b := make([]byte, 32)
	copy(b, s)
	return b
}

func TestLoadSimpleAndMultiplex(t *testing.T) {
	var blob []byte
	var header [7]uint32
	header[2] = 1 // simple count
	header[3] = 1 // multiplexed count
	for _, h := range header {
		blob = putU32(blob, h)
	}
	blob = append(blob, padName("skin1")...)

	// One simple binding.
	blob = putU32(blob, 0)  // bone
	blob = putU32(blob, 10) // vertex count
	blob = putU32(blob, 0)  // vertex offset

	// One multiplex binding.
	blob = putU32(blob, 5) // count
	blob = putU32(blob, 1)
	blob = putU32(blob, 2)
	blob = putU32(blob, 3)
	blob = putF32(blob, 0.5)
	blob = putF32(blob, 0.3)
	blob = putF32(blob, 0.2)
	blob = append(blob, make([]byte, 64)...)

	skin, err := Load(blob)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(skin.Simple) != 1 || skin.Simple[0].VertexCount != 10 {
		t.Errorf("simple = %+v", skin.Simple)
	}
	if len(skin.Multi) != 1 || skin.Multi[0].Count != 5 {
		t.Errorf("multi = %+v", skin.Multi)
	}
	if got := skin.TotalVertices(); got != 15 {
		t.Errorf("TotalVertices() = %d, want 15", got)
	}
}
