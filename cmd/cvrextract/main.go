package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cvrextract/internal/config"
	"cvrextract/internal/pipeline"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	prefix := flag.String("prefix", "", "Output root directory (default: contents)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	verbose := flag.Bool("verbose", false, "Print per-directory archive summaries")

	raw := flag.Bool("raw", false, "Dump raw archive payloads only, skip all decoding")
	noRaw := flag.Bool("no-raw", false, "Force decoding on even if config.json sets raw-only")
	textures := flag.Bool("textures", false, "Decode PVR textures to PNG")
	noTextures := flag.Bool("no-textures", false, "Skip PVR texture decoding")
	meshes := flag.Bool("meshes", false, "Transcode static meshes to glTF")
	noMeshes := flag.Bool("no-meshes", false, "Skip static mesh transcoding")
	actorsFlag := flag.Bool("actors", false, "Assemble skeletal actors to glTF")
	noActors := flag.Bool("no-actors", false, "Skip actor assembly")

	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: cvrextract [flags] archive.bin [archive.bin ...]")
		os.Exit(1)
	}

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	flags := config.Flags{
		Prefix:  *prefix,
		Workers: *workers,
		Verbose: *verbose,
	}
	if *raw || *noRaw {
		flags.RawOnlySet = true
		flags.RawOnly = *raw && !*noRaw
	}
	if *textures || *noTextures {
		flags.DecodeTexturesSet = true
		flags.DecodeTextures = *textures && !*noTextures
	}
	if *meshes || *noMeshes {
		flags.DecodeMeshesSet = true
		flags.DecodeMeshes = *meshes && !*noMeshes
	}
	if *actorsFlag || *noActors {
		flags.DecodeActorsSet = true
		flags.DecodeActors = *actorsFlag && !*noActors
	}
	cfg.Resolve(flags)

	jobs := make([]pipeline.Job, len(args))
	for i, a := range args {
		jobs[i] = pipeline.Job{Path: a}
	}

	fmt.Printf("Castlevania: Resurrection asset extractor\n")
	fmt.Printf("Archives: %d, Workers: %d\n", len(jobs), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.Prefix)
	if cfg.RawOnly {
		fmt.Println("Mode: raw dump only")
	}
	fmt.Println("------------------------------------------------------------")

	start := time.Now()
	summary := pipeline.Run(jobs, cfg)
	elapsed := time.Since(start)

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	entries, assets, failed := 0, 0, 0
	var failures []string
	for _, ar := range summary.Archives {
		if ar.Err != nil {
			failed++
			failures = append(failures, fmt.Sprintf("%s: %v", ar.Archive, ar.Err))
			continue
		}
		entries += ar.Entries
		for _, a := range ar.Assets {
			assets++
			if a.Err != nil {
				failures = append(failures, fmt.Sprintf("%s %s: %v", a.Kind, a.Name, a.Err))
			}
		}
	}
	for _, a := range summary.Actors {
		assets++
		if a.Err != nil {
			failures = append(failures, fmt.Sprintf("%s %s: %v", a.Kind, a.Name, a.Err))
		}
	}

	fmt.Printf("Archives: %d ok, %d failed; %d entries; %d assets decoded\n",
		len(summary.Archives)-failed, failed, entries, assets)

	if len(failures) > 0 {
		fmt.Printf("\nFailures (%d):\n", len(failures))
		limit := 20
		if len(failures) < limit {
			limit = len(failures)
		}
		for _, f := range failures[:limit] {
			fmt.Printf("  %s\n", f)
		}
		if len(failures) > limit {
			fmt.Printf("  ... and %d more\n", len(failures)-limit)
		}
	}

	os.MkdirAll(cfg.Prefix, 0o755)
	manifestPath := filepath.Join(cfg.Prefix, "manifest.json")
	if err := writeManifest(manifestPath, summary); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
