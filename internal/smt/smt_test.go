package smt

import (
	"encoding/binary"
	"errors"
	"testing"
)

func buildMaterial(name string, tags []string) []byte {
	b := make([]byte, 32)
	copy(b, name)
	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(tags)))
	b = append(b, count...)

	for range tags {
		rec := make([]byte, 4+48)
		b = append(b, rec...)
	}
	for _, tag := range tags {
		t := make([]byte, 32)
		copy(t, tag)
		b = append(b, t...)
	}
	return b
}

func TestLoadRoundTrip(t *testing.T) {
	blob := buildMaterial("mat1", []string{"tex_a", "tex_b"})
	m, err := Load(blob)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Tags) != 2 || len(m.Params) != 2 {
		t.Fatalf("got %d tags, %d params, want 2 and 2", len(m.Tags), len(m.Params))
	}
	if m.Tags[0] != "tex_a" || m.Tags[1] != "tex_b" {
		t.Errorf("tags = %v", m.Tags)
	}
}

func TestLoadMalformedTooShort(t *testing.T) {
	_, err := Load(make([]byte, 10))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}
