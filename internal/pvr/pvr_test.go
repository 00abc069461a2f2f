package pvr

import (
	"encoding/binary"
	"testing"
)

func header(pixelFmt PixelFormat, layout DataLayout, w, h uint16) []byte {
	h0 := make([]byte, headerSize)
	copy(h0[:4], magic)
	h0[8] = byte(pixelFmt)
	h0[9] = byte(layout)
	binary.LittleEndian.PutUint16(h0[12:], w)
	binary.LittleEndian.PutUint16(h0[14:], h)
	return h0
}

func TestMortonBijectionAxes(t *testing.T) {
	// morton(x, 0) spreads x into even bit positions.
	if got := morton(5, 0); got != spread(5) {
		t.Errorf("morton(5,0) = %#x, want %#x", got, spread(5))
	}
	// morton(0, y) spreads y into odd bit positions.
	if got := morton(0, 7); got != spread(7)<<1 {
		t.Errorf("morton(0,7) = %#x, want %#x", got, spread(7)<<1)
	}
}

func TestMortonDistinctForSmallGrid(t *testing.T) {
	seen := map[uint32]bool{}
	for y := uint32(0); y < 16; y++ {
		for x := uint32(0); x < 16; x++ {
			z := morton(x, y)
			if seen[z] {
				t.Fatalf("morton(%d,%d) = %d collides with an earlier coordinate", x, y, z)
			}
			seen[z] = true
		}
	}
}

func TestDecodeTwiddled2x2RGB565(t *testing.T) {
	blob := header(FormatRGB565, LayoutSquareTwiddled, 2, 2)
	// Four 16-bit pixels at Morton positions 0,1,2,3.
	pix := []uint16{0x0000, 0xFFFF, 0x1111, 0x2222}
	payload := make([]byte, 8)
	for i, p := range pix {
		binary.LittleEndian.PutUint16(payload[i*2:], p)
	}
	blob = append(blob, payload...)

	tex, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tex.Space != RGB {
		t.Fatalf("Space = %v, want RGB", tex.Space)
	}
	if len(tex.Rows) != 2 || len(tex.Rows[0]) != 6 {
		t.Fatalf("got %d rows of %d bytes, want 2 rows of 6 bytes", len(tex.Rows), len(tex.Rows[0]))
	}
	want := unpack565(pix[morton(0, 1)])
	got := tex.Rows[0][3:6]
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pixel (0,1) channel %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecodeRejectsOversizeDimensions(t *testing.T) {
	blob := header(FormatRGB565, LayoutSquareTwiddled, 0x8000, 1)
	if _, err := Decode(blob); err == nil {
		t.Fatal("expected error for width >= 0x8000")
	}
}

func TestDecodeRejectsMissingMagic(t *testing.T) {
	blob := make([]byte, 16)
	if _, err := Decode(blob); err == nil {
		t.Fatal("expected error for missing PVRT magic")
	}
}

func TestDecodeVQConsistency(t *testing.T) {
	const w, h = 4, 4
	blob := header(FormatARGB4444, LayoutVQ, w, h)

	book := make([]uint16, codebookLen)
	for i := range book {
		book[i] = uint16(i)
	}
	bookBytes := make([]byte, codebookSize)
	for i, v := range book {
		binary.LittleEndian.PutUint16(bookBytes[i*2:], v)
	}
	blob = append(blob, bookBytes...)

	// Index map: width*height/4 bytes.
	idxLen := w * h / 4
	idx := make([]byte, idxLen)
	for i := range idx {
		idx[i] = byte(i)
	}
	blob = append(blob, idx...)
	blob = append(blob, make([]byte, vqTrailPad)...)

	tex, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tex.Space != RGBA {
		t.Fatalf("Space = %v, want RGBA", tex.Space)
	}

	entry := 4 * int(idx[morton(0, 0)])
	want00 := unpack4444(book[entry+0])
	got00 := tex.Rows[0][0:4]
	for i := range want00 {
		if got00[i] != want00[i] {
			t.Errorf("pixel (0,0) channel %d = %d, want %d", i, got00[i], want00[i])
		}
	}

	want11 := unpack4444(book[entry+3])
	got11 := tex.Rows[1][4:8]
	for i := range want11 {
		if got11[i] != want11[i] {
			t.Errorf("pixel (1,1) channel %d = %d, want %d", i, got11[i], want11[i])
		}
	}
}
