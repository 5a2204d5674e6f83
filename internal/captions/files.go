package captions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Ext is the caption file extension.
const Ext = ".txt"

// maxMirrorCopies bounds concurrent file copies in Mirror.
const maxMirrorCopies = 8

// ErrNoCaptions is returned when a directory holds no caption files.
var ErrNoCaptions = errors.New("no captions found")

// ListStems returns the stems of the caption files in dir, sorted.
func ListStems(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read caption directory '%s': %w", dir, err)
	}

	var stems []string
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != Ext {
			continue
		}
		stems = append(stems, strings.TrimSuffix(name, Ext))
	}
	if len(stems) == 0 {
		return nil, fmt.Errorf("%w in directory '%s'", ErrNoCaptions, dir)
	}

	sort.Strings(stems)
	return stems, nil
}

// Path returns the caption path for stem inside dir.
func Path(dir, stem string) string {
	return filepath.Join(dir, stem+Ext)
}

// Read loads and trims the caption for stem.
func Read(dir, stem string) (string, error) {
	data, err := os.ReadFile(Path(dir, stem))
	if err != nil {
		return "", fmt.Errorf("failed to read caption for '%s': %w", stem, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write replaces the caption for stem via a temp file and rename.
func Write(dir, stem, text string) error {
	tmp, err := os.CreateTemp(dir, "."+stem+"-*"+Ext)
	if err != nil {
		return fmt.Errorf("failed to create temp caption for '%s': %w", stem, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write caption for '%s': %w", stem, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close caption for '%s': %w", stem, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod caption for '%s': %w", stem, err)
	}
	if err := os.Rename(tmp.Name(), Path(dir, stem)); err != nil {
		return fmt.Errorf("failed to replace caption for '%s': %w", stem, err)
	}
	return nil
}

// MirrorReport counts what Mirror did.
type MirrorReport struct {
	Copied         int
	SkippedDirs    []string
	MissingSources []string
}

// Mirror copies the captions for stems from srcDir into every destination
// directory that exists. Missing destinations and missing sources are
// reported, not treated as errors.
func Mirror(ctx context.Context, srcDir string, destDirs, stems []string) (MirrorReport, error) {
	var report MirrorReport

	var present []string
	for _, stem := range stems {
		if _, err := os.Stat(Path(srcDir, stem)); err != nil {
			report.MissingSources = append(report.MissingSources, stem)
			continue
		}
		present = append(present, stem)
	}

	var targets []string
	for _, dir := range destDirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			report.SkippedDirs = append(report.SkippedDirs, dir)
			continue
		}
		targets = append(targets, dir)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxMirrorCopies)
	for _, dir := range targets {
		for _, stem := range present {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return copyFile(Path(srcDir, stem), Path(dir, stem))
			})
		}
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	report.Copied = len(targets) * len(present)
	return report, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy '%s' to '%s': %w", src, dst, err)
	}
	return out.Close()
}
