package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bespokepunks/traitsampler/internal/models"
)

const batchSize = 10 // Number of results to batch write

// ResultsFile is the JSON file written into the output directory.
const ResultsFile = "trait_results.json"

// Storage defines the interface for storing sprite results
type Storage interface {
	// AddResult adds a single sprite result
	AddResult(ctx context.Context, result models.SpriteResult) error

	// Flush ensures all pending results are saved
	Flush() error
}

// JSONStorage batches results into a JSON file keyed by filename.
type JSONStorage struct {
	results   []models.SpriteResult
	mu        sync.Mutex
	outputDir string
}

// NewStorage creates a new JSON storage manager writing into outputDir
func NewStorage(outputDir string) *JSONStorage {
	return &JSONStorage{outputDir: outputDir}
}

// Path is the location of the results file.
func (s *JSONStorage) Path() string {
	return filepath.Join(s.outputDir, ResultsFile)
}

// AddResult adds a result to the batch and flushes if the batch is full
func (s *JSONStorage) AddResult(ctx context.Context, result models.SpriteResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)

	if len(s.results) >= batchSize {
		return s.flush()
	}
	return nil
}

// Flush writes all pending results to disk
func (s *JSONStorage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *JSONStorage) flush() error {
	if len(s.results) == 0 {
		return nil
	}

	existing, err := ReadResults(s.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	byName := make(map[string]models.SpriteResult, len(existing)+len(s.results))
	for _, r := range existing {
		byName[r.Filename] = r
	}
	for _, r := range s.results {
		byName[r.Filename] = r
	}

	all := make([]models.SpriteResult, 0, len(byName))
	for _, r := range byName {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Filename < all[j].Filename })

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for results: %w", err)
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(s.Path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	s.results = nil
	return nil
}

// ReadResults loads a results file written by JSONStorage.
func ReadResults(path string) ([]models.SpriteResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	var results []models.SpriteResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal existing results: %w", err)
	}
	return results, nil
}

// Multi fans results out to several stores.
type Multi []Storage

// AddResult forwards to every store and joins their errors.
func (m Multi) AddResult(ctx context.Context, result models.SpriteResult) error {
	var errs []error
	for _, s := range m {
		if err := s.AddResult(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every store and joins their errors.
func (m Multi) Flush() error {
	var errs []error
	for _, s := range m {
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
