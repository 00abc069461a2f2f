// Package pipeline orchestrates one extraction run: archive walking, raw
// persistence, symbol indexing, texture/mesh decoding, and actor assembly,
// parallelised the way internal/batch/processor.go parallelises the
// teacher's per-item rendering.
package pipeline

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cvrextract/internal/actor"
	"cvrextract/internal/archive"
	"cvrextract/internal/config"
	"cvrextract/internal/gltfdoc"
	"cvrextract/internal/mesh"
	"cvrextract/internal/pvr"
	"cvrextract/internal/script"
	"cvrextract/internal/smt"
	"cvrextract/internal/symbols"

	"github.com/qmuntal/gltf"
)

// Job is one input archive to extract.
type Job struct {
	Path string // path to a .bin archive on disk
}

// AssetResult records the outcome of decoding/transcoding one asset (a
// texture, a static mesh, or an actor/animation pair).
type AssetResult struct {
	Kind string // "texture", "smf", or "actor"
	Name string
	Err  error
}

// ArchiveResult is the outcome of one archive's extraction.
type ArchiveResult struct {
	Archive string
	Entries int
	Assets  []AssetResult
	Err     error // set only on fatal I/O or container-parse failure
}

// fsSink implements archive.Sink against the local filesystem, rooted at
// root. Directory creation races are silently tolerated (spec.md §7).
type fsSink struct{ root string }

func (s fsSink) Write(directory, name string, payload []byte) error {
	dir := filepath.Join(s.root, directory)
	if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), payload, 0o644)
}

// nameIndex resolves animation/material files by bare filename (no
// directory), since neither has an entry in symbols.Index (spec.md §5
// names only the skeleton/skin/mesh symbol tables).
type nameIndex struct {
	mu      sync.RWMutex
	byEntry map[string][]byte // lower(name) -> payload
}

func newNameIndex() *nameIndex {
	return &nameIndex{byEntry: make(map[string][]byte)}
}

func (n *nameIndex) merge(entries []archive.Entry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range entries {
		n.byEntry[strings.ToLower(e.Name)] = e.Payload
	}
}

func (n *nameIndex) lookup(stem, ext string) ([]byte, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	payload, ok := n.byEntry[strings.ToLower(stem+ext)]
	return payload, ok
}

// Summary is the full outcome of a Run: per-archive raw/decode results
// plus the actor-assembly results, which are inherently cross-archive
// (spec.md §5) and so are not attributed to any single archive.
type Summary struct {
	Archives []ArchiveResult
	Actors   []AssetResult
}

// Run extracts every job's archive into cfg.Prefix. Symbol tables and the
// name index accumulate across jobs (spec.md §5: cross-archive execution
// is allowed because later archives may add entries before the
// actor-assembler runs).
func Run(jobs []Job, cfg config.Config) Summary {
	idx := symbols.NewIndex()
	names := newNameIndex()
	results := make([]ArchiveResult, len(jobs))

	// Pass 1: walk every archive, write raw payloads, merge symbol/name
	// tables. Must complete before any cross-reference resolution.
	allEntries := make([][]archive.Entry, len(jobs))
	for i, job := range jobs {
		entries, err := readArchive(job.Path, cfg)
		if err != nil {
			results[i] = ArchiveResult{Archive: job.Path, Err: err}
			continue
		}
		allEntries[i] = entries
		symbols.Build(idx, entries)
		names.merge(entries)
		results[i] = ArchiveResult{Archive: job.Path, Entries: len(entries)}
	}

	if cfg.RawOnly {
		return Summary{Archives: results}
	}

	// Pass 2: decode textures and static meshes, one archive at a time and
	// sequentially; only the actor stage below uses a worker pool.
	for i, job := range jobs {
		if results[i].Err != nil {
			continue
		}
		base := archiveBase(job.Path)
		outRoot := filepath.Join(cfg.Prefix, base)

		var assets []AssetResult
		if cfg.DecodeTextures {
			assets = append(assets, decodeTextures(allEntries[i], outRoot)...)
		}
		if cfg.DecodeMeshes {
			assets = append(assets, decodeStaticMeshes(allEntries[i], names, outRoot)...)
		}
		results[i].Assets = append(results[i].Assets, assets...)
	}

	var actorResults []AssetResult
	if cfg.DecodeActors {
		var animsets map[string]script.Animset
		var actors map[string]script.Actor
		for _, e := range idx.AnimsetScripts {
			if m, err := script.ParseAnimsets(e); err == nil {
				animsets = mergeAnimsets(animsets, m)
			}
		}
		for _, e := range idx.ActorScripts {
			if m, err := script.ParseActors(e); err == nil {
				actors = mergeActors(actors, m)
			}
		}

		byPath := buildPathLookup(allEntries)
		actorResults = RunActors(idx, byPath, names.lookup, animsets, actors, cfg.Workers, cfg.Prefix)
	}

	return Summary{Archives: results, Actors: actorResults}
}

func readArchive(path string, cfg config.Config) ([]archive.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read %s: %w", path, err)
	}

	var hook archive.DirHook
	if cfg.Verbose {
		hook = func(dir string, nfiles int) {
			fmt.Printf("  %s: %d files\n", dir, nfiles)
		}
	}

	entries, err := archive.Walk(data, hook)
	if err != nil {
		return nil, fmt.Errorf("pipeline: walk %s: %w", path, err)
	}

	base := archiveBase(path)
	if err := archive.WriteAll(entries, fsSink{root: filepath.Join(cfg.Prefix, base)}); err != nil {
		return nil, err
	}
	return entries, nil
}

func archiveBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func decodeTextures(entries []archive.Entry, outRoot string) []AssetResult {
	var results []AssetResult
	for _, e := range entries {
		if strings.ToLower(e.Directory) != "textures" {
			continue
		}
		tex, err := pvr.Decode(e.Payload)
		if err != nil {
			results = append(results, AssetResult{Kind: "texture", Name: e.Name, Err: fmt.Errorf("pipeline: %w", err)})
			continue
		}
		if err := writePNG(filepath.Join(outRoot, "textures", e.Name+".png"), tex); err != nil {
			results = append(results, AssetResult{Kind: "texture", Name: e.Name, Err: err})
			continue
		}
		results = append(results, AssetResult{Kind: "texture", Name: e.Name})
	}
	return results
}

func writePNG(path string, tex *pvr.Texture) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("pipeline: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pipeline: create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, tex.Image()); err != nil {
		return fmt.Errorf("pipeline: png encode %s: %w", path, err)
	}
	return nil
}

func decodeStaticMeshes(entries []archive.Entry, names *nameIndex, outRoot string) []AssetResult {
	var results []AssetResult
	for _, e := range entries {
		if !strings.HasSuffix(strings.ToLower(e.Name), ".smf") {
			continue
		}
		m, err := mesh.Parse(e.Payload)
		if err != nil {
			results = append(results, AssetResult{Kind: "smf", Name: e.Name, Err: fmt.Errorf("pipeline: %w", err)})
			continue
		}

		stem := strings.TrimSuffix(e.Name, filepath.Ext(e.Name))
		mat := smt.Placeholder()
		if matData, ok := names.lookup(stem, ".smt"); ok {
			if parsed, err := smt.Load(matData); err == nil {
				mat = parsed
			}
		}

		doc := gltfdoc.New()
		tagger := newMaterialSet(doc)
		mesh.Emit(doc, m, nil, mat, tagger)

		if err := gltfdoc.Save(doc, filepath.Join(outRoot, "smf", stem+".gltf")); err != nil {
			results = append(results, AssetResult{Kind: "smf", Name: e.Name, Err: err})
			continue
		}
		results = append(results, AssetResult{Kind: "smf", Name: e.Name})
	}
	return results
}

// materialSet mirrors internal/actor's texture-material memoization for
// the standalone static-mesh path.
type materialSet struct {
	b     *gltfdoc.Builder
	byTag map[string]uint32
}

func newMaterialSet(doc *gltf.Document) *materialSet {
	return &materialSet{b: gltfdoc.NewBuilder(doc), byTag: make(map[string]uint32)}
}

func (m *materialSet) MaterialFor(tag string) uint32 {
	if idx, ok := m.byTag[tag]; ok {
		return idx
	}
	idx := m.b.AddTextureMaterial(tag)
	m.byTag[tag] = idx
	return idx
}

func buildPathLookup(allEntries [][]archive.Entry) actor.PathLoader {
	byPath := make(map[string][]byte)
	for _, entries := range allEntries {
		for _, e := range entries {
			byPath[e.Directory+"/"+e.Name] = e.Payload
		}
	}
	return func(path string) ([]byte, bool) {
		payload, ok := byPath[path]
		return payload, ok
	}
}

func mergeAnimsets(dst, src map[string]script.Animset) map[string]script.Animset {
	if dst == nil {
		dst = make(map[string]script.Animset)
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func mergeActors(dst, src map[string]script.Actor) map[string]script.Actor {
	if dst == nil {
		dst = make(map[string]script.Actor)
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// RunActors assembles every (actor, animation) pair with actor.Assemble,
// which runs serially, then saves the resulting glTF scenes concurrently
// using a worker pool, the shape of internal/batch/processor.go's Run
// retargeted from "render one item" to "save one glTF scene", with a
// periodic progress ticker (spec.md §2 ambient stack).
func RunActors(idx *symbols.Index, byPath actor.PathLoader, byName actor.NameLoader, animsets map[string]script.Animset, actors map[string]script.Actor, workers int, prefix string) []AssetResult {
	all := actor.Assemble(idx, byPath, byName, animsets, actors)
	total := len(all)
	if total == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([]AssetResult, total)
	var processed atomic.Int64

	start := time.Now()
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					fmt.Printf("  [%d/%d] actors, %.1fs elapsed\n", p, total, time.Since(start).Seconds())
				}
			}
		}
	}()

	workChan := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workChan {
				results[i] = saveActorResult(all[i], prefix)
				processed.Add(1)
			}
		}()
	}
	for i := range all {
		workChan <- i
	}
	close(workChan)
	wg.Wait()
	close(done)

	return results
}

func saveActorResult(r actor.Result, prefix string) AssetResult {
	name := r.Actor + "_" + r.Animation
	if r.Err != nil {
		return AssetResult{Kind: "actor", Name: name, Err: r.Err}
	}
	path := filepath.Join(prefix, "actors", name+".gltf")
	if err := gltfdoc.Save(r.Doc, path); err != nil {
		return AssetResult{Kind: "actor", Name: name, Err: err}
	}
	return AssetResult{Kind: "actor", Name: name}
}
