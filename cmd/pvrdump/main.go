package main

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"cvrextract/internal/pvr"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pvrdump texture.pvr [out.png]")
		os.Exit(1)
	}

	src := os.Args[1]
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	tex, err := pvr.Decode(data)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %dx%d, space=%s, channels=%d\n", src, tex.Width, tex.Height, tex.Space, tex.Space.Channels())

	out := strings.TrimSuffix(src, filepath.Ext(src)) + ".png"
	if len(os.Args) > 2 {
		out = os.Args[2]
	}

	f, err := os.Create(out)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := png.Encode(f, tex.Image()); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", out)
}
