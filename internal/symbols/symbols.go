// Package symbols builds the three symbol→path maps (skeleton, skin,
// character-mesh) populated by a first pass over archive entries, plus
// verbatim capture of the two auxiliary script files. It replaces the
// source's process-wide sskdb/ssndb/scfdb/fspaths globals (§9) with an
// explicit, driver-owned value threaded through the pipeline.
package symbols

import (
	"strings"

	"cvrextract/internal/archive"
	"cvrextract/internal/breader"
)

// Offsets of the embedded 32-byte symbolic name within each asset type's
// header, per spec.md §4.4/§4.5/§4.6.
const (
	skeletonNameOffset = 5 * 4         // SSK header: 5×u32 then name
	skinNameOffset     = 7 * 4         // SSN header: 7×u32 then name
	meshNameOffset     = 15*4 + 54*4   // mesh header: 15×u32, skip 54×u32, then name
)

// Index is the context value carrying symbol tables built during the
// archive-scan phase and consumed read-only thereafter.
type Index struct {
	Skeletons map[string]string // symbol -> "directory/name" path
	Skins     map[string]string
	Meshes    map[string]string

	AnimsetScripts []string // verbatim payloads of *_animsets.txt entries
	ActorScripts   []string // verbatim payloads of *_actors.txt entries
}

// NewIndex returns an empty Index ready for Build/merge.
func NewIndex() *Index {
	return &Index{
		Skeletons: make(map[string]string),
		Skins:     make(map[string]string),
		Meshes:    make(map[string]string),
	}
}

// Build scans entries and merges what it finds into idx, so callers can
// index multiple archives into one shared Index (spec.md §5: cross-archive
// execution is allowed because later archives may add entries before the
// assembler runs).
func Build(idx *Index, entries []archive.Entry) {
	for _, e := range entries {
		lowerName := strings.ToLower(e.Name)

		switch {
		case strings.HasSuffix(lowerName, "_animsets.txt"):
			idx.AnimsetScripts = append(idx.AnimsetScripts, string(e.Payload))
			continue
		case strings.HasSuffix(lowerName, "_actors.txt"):
			idx.ActorScripts = append(idx.ActorScripts, string(e.Payload))
			continue
		}

		path := e.Directory + "/" + e.Name

		switch extOf(lowerName) {
		case ".ssk":
			if sym := peekSymbol(e.Payload, skeletonNameOffset); sym != "" {
				idx.Skeletons[sym] = path
			}
		case ".ssn":
			if sym := peekSymbol(e.Payload, skinNameOffset); sym != "" {
				idx.Skins[sym] = path
			}
		case ".scf":
			if sym := peekSymbol(e.Payload, meshNameOffset); sym != "" {
				idx.Meshes[sym] = path
			}
		}
	}
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func peekSymbol(payload []byte, offset int) string {
	if len(payload) < offset+32 {
		return ""
	}
	r := breader.New(payload)
	r.Seek(offset)
	return r.FixedASCII(32)
}
