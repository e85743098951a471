package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mantohq/manto/internal/archive"
)

const defaultDataDir = "data"

func runArchive(args []string) error {
	var outputPath string
	dataDir := defaultDataDir

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			outputPath = args[i]
		case "-data":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -data")
			}
			i++
			dataDir = args[i]
		}
	}

	if outputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: manto archive -f <output.tar.zst> [-data <dir>]\n")
		return fmt.Errorf("missing -f flag")
	}

	size, err := archive.Snapshot(dataDir, outputPath)
	if err != nil {
		return err
	}
	slog.Info("archive written", "path", outputPath, "size", archive.FormatSize(size))
	return nil
}

func runRestore(args []string) error {
	var inputPath string
	dataDir := defaultDataDir
	overwrite := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			inputPath = args[i]
		case "-data":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -data")
			}
			i++
			dataDir = args[i]
		case "-overwrite":
			overwrite = true
		}
	}

	if inputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: manto restore -f <input.tar.zst> [-data <dir>] [-overwrite]\n")
		return fmt.Errorf("missing -f flag")
	}

	if err := archive.Restore(inputPath, dataDir, overwrite); err != nil {
		return err
	}
	slog.Info("archive restored", "path", inputPath, "data", dataDir)
	return nil
}
