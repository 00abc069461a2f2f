package main

import (
	"encoding/json"
	"os"

	"cvrextract/internal/pipeline"
)

// manifestEntry is one decoded/failed asset in the output manifest.
type manifestEntry struct {
	Archive string `json:"archive,omitempty"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

func writeManifest(path string, summary pipeline.Summary) error {
	var entries []manifestEntry
	for _, ar := range summary.Archives {
		if ar.Err != nil {
			entries = append(entries, manifestEntry{Archive: ar.Archive, Kind: "archive", Name: ar.Archive, Error: ar.Err.Error()})
			continue
		}
		for _, a := range ar.Assets {
			entries = append(entries, manifestEntry{Archive: ar.Archive, Kind: a.Kind, Name: a.Name, OK: a.Err == nil, Error: errString(a.Err)})
		}
	}
	for _, a := range summary.Actors {
		entries = append(entries, manifestEntry{Kind: a.Kind, Name: a.Name, OK: a.Err == nil, Error: errString(a.Err)})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
