// tilepack is a CLI utility for working with packed tile archives.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/terraglobe/pkg/tilepack"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "extract", "x":
		cmdExtract(args)
	case "pack":
		cmdPack(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tilepack - packed tile archive utility

Usage:
  tilepack <command> [options]

Commands:
  info <file.tpk>                    Show archive information
  list <file.tpk> [prefix]           List tiles (optional zoom prefix)
  extract <file.tpk> <tile> [dir]    Extract tile(s) to directory
  pack <dir> <file.tpk>              Pack a z/x/y tile directory

Examples:
  tilepack info earth.tpk
  tilepack list earth.tpk 4/
  tilepack extract earth.tpk 4/7/5 ./out
  tilepack pack ./tiles earth.tpk`)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tilepack info <file.tpk>")
		os.Exit(1)
	}

	archive, err := tilepack.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	// Count tiles per zoom level
	zoomCount := make(map[string]int)
	for _, name := range archive.List() {
		zoom := name
		if i := strings.IndexByte(name, '/'); i >= 0 {
			zoom = name[:i]
		}
		zoomCount[zoom]++
	}

	fmt.Printf("Archive: %s\n", args[0])
	fmt.Printf("Tiles:   %d\n", archive.Count())
	fmt.Println()
	fmt.Println("Tiles by zoom:")

	zooms := make([]string, 0, len(zoomCount))
	for z := range zoomCount {
		zooms = append(zooms, z)
	}
	sort.Slice(zooms, func(i, j int) bool {
		return len(zooms[i]) < len(zooms[j]) || (len(zooms[i]) == len(zooms[j]) && zooms[i] < zooms[j])
	})
	for _, z := range zooms {
		fmt.Printf("  %-4s %d\n", z, zoomCount[z])
	}
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N tiles (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tilepack list <file.tpk> [prefix]")
		os.Exit(1)
	}

	archive, err := tilepack.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	prefix := ""
	if fs.NArg() > 1 {
		prefix = fs.Arg(1)
	}

	count := 0
	for _, name := range archive.List() {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		fmt.Println(name)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if prefix != "" {
		fmt.Fprintf(os.Stderr, "\n(%d tiles matched)\n", count)
	}
}

func cmdExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: tilepack extract <file.tpk> <tile|prefix/> [output_dir]")
		os.Exit(1)
	}

	packPath := fs.Arg(0)
	tilePath := fs.Arg(1)
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive, err := tilepack.Open(packPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	// A trailing slash extracts everything under the prefix.
	if strings.HasSuffix(tilePath, "/") {
		extractPrefix(archive, tilePath, outputDir)
		return
	}

	if !archive.Contains(tilePath) {
		fmt.Fprintf(os.Stderr, "Tile not found: %s\n", tilePath)
		os.Exit(1)
	}

	data, err := archive.Read(tilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading tile: %v\n", err)
		os.Exit(1)
	}

	outputPath := filepath.Join(outputDir, filepath.FromSlash(tilePath))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing tile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
}

func extractPrefix(archive *tilepack.Archive, prefix, outputDir string) {
	extracted := 0
	for _, name := range archive.List() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		data, err := archive.Read(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", name, err)
			continue
		}

		outputPath := filepath.Join(outputDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
			continue
		}

		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
			continue
		}

		fmt.Printf("Extracted: %s\n", outputPath)
		extracted++
	}

	fmt.Fprintf(os.Stderr, "\nExtracted %d tiles\n", extracted)
}

func cmdPack(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: tilepack pack <dir> <file.tpk>")
		os.Exit(1)
	}

	root := args[0]
	w, err := tilepack.Create(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	packed := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		// Tile names drop the extension: 4/7/5.rgb packs as 4/7/5.
		name := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		if err := w.Add(name, data); err != nil {
			return err
		}
		packed++
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := w.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Packed %d tiles into %s\n", packed, args[1])
}
