package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bespokepunks/traitsampler/internal/captions"
	"github.com/bespokepunks/traitsampler/internal/classifier"
	"github.com/bespokepunks/traitsampler/internal/embeddings"
	"github.com/bespokepunks/traitsampler/internal/extractor"
	"github.com/bespokepunks/traitsampler/internal/models"
	"github.com/bespokepunks/traitsampler/internal/sampler"
	"github.com/bespokepunks/traitsampler/internal/storage"
)

const defaultWorkers = 4

// Options tunes a Processor.
type Options struct {
	Workers      int
	CaptionDir   string
	SyncCaptions bool
	RewriteEyes  bool
	PaletteSize  int
}

// Processor runs the sampler and classifier over a directory of sprites.
type Processor struct {
	classifier *classifier.Classifier
	storage    storage.Storage
	features   *embeddings.Service
	reviewer   Reviewer
	logger     *slog.Logger
	opts       Options
}

// NewProcessor wires a Processor. features and reviewer may be nil.
func NewProcessor(c *classifier.Classifier, store storage.Storage, features *embeddings.Service, reviewer Reviewer, logger *slog.Logger, opts Options) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.PaletteSize <= 0 {
		opts.PaletteSize = sampler.DefaultPaletteSize
	}
	return &Processor{
		classifier: c,
		storage:    store,
		features:   features,
		reviewer:   reviewer,
		logger:     logger,
		opts:       opts,
	}
}

// Failure records a sprite that could not be processed.
type Failure struct {
	Filename string
	Err      error
}

// Summary counts the outcome of a batch.
type Summary struct {
	Total           int
	Classified      int
	Failed          []Failure
	CaptionsChanged int
	NeedsReview     int
	Reviewed        int
	Changed         []string
	MissingCaptions []string
}

// ProcessDir classifies every sprite in dir. Per-sprite failures are logged
// and reported in the Summary; only setup and storage errors are returned.
func (p *Processor) ProcessDir(ctx context.Context, dir string) (Summary, error) {
	p.logger.Info("processing sprites", "dir", dir)

	sprites, err := extractor.ListSprites(dir)
	if err != nil {
		return Summary{}, err
	}

	p.logger.Info("found sprites to analyze", "count", len(sprites))
	return p.processSprites(ctx, dir, sprites)
}

func (p *Processor) processSprites(ctx context.Context, dir string, sprites []string) (Summary, error) {
	workChan := make(chan models.WorkItem, len(sprites))
	resultsChan := make(chan models.SpriteResult, len(sprites))
	failuresChan := make(chan Failure, len(sprites))

	var wg sync.WaitGroup

	remaining := atomic.Int64{}
	remaining.Store(int64(len(sprites)))

	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workChan {
				result, err := p.analyzeSprite(ctx, work)
				left := remaining.Add(-1)
				if err != nil {
					p.logger.Error("sprite failed",
						"sprite", work.Stem, "num", work.Num, "total", work.Total, "error", err)
					failuresChan <- Failure{Filename: work.SpritePath, Err: err}
					continue
				}
				p.logger.Debug("sprite classified",
					"sprite", work.Stem, "eyes", result.Traits.Eyes.Text, "remaining", left)
				resultsChan <- result
			}
		}()
	}

	go func() {
		defer close(workChan)
		for i, name := range sprites {
			select {
			case workChan <- models.WorkItem{
				SpritePath: filepath.Join(dir, name),
				Stem:       extractor.Stem(name),
				Num:        i + 1,
				Total:      len(sprites),
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	summary := Summary{Total: len(sprites)}
	var storeErr error
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range resultsChan {
			summary.Classified++
			if result.CaptionChanged {
				summary.CaptionsChanged++
				summary.Changed = append(summary.Changed, extractor.Stem(result.Filename))
			}
			if result.CaptionMissing {
				summary.MissingCaptions = append(summary.MissingCaptions, extractor.Stem(result.Filename))
			}
			if result.NeedsReview() {
				summary.NeedsReview++
			}
			if result.ReviewNote != "" {
				summary.Reviewed++
			}
			if err := p.storage.AddResult(ctx, result); err != nil && storeErr == nil {
				storeErr = err
			}
		}
	}()

	wg.Wait()
	close(resultsChan)
	close(failuresChan)
	<-collected

	for f := range failuresChan {
		summary.Failed = append(summary.Failed, f)
	}
	sort.Slice(summary.Failed, func(i, j int) bool { return summary.Failed[i].Filename < summary.Failed[j].Filename })
	sort.Strings(summary.Changed)
	sort.Strings(summary.MissingCaptions)

	if err := p.storage.Flush(); err != nil {
		return summary, fmt.Errorf("failed to flush final results: %w", err)
	}
	if storeErr != nil {
		return summary, fmt.Errorf("failed to store results: %w", storeErr)
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	p.logger.Info("batch complete",
		"total", summary.Total,
		"classified", summary.Classified,
		"failed", len(summary.Failed),
		"captions_changed", summary.CaptionsChanged,
		"captions_missing", len(summary.MissingCaptions),
		"needs_review", summary.NeedsReview)
	return summary, nil
}

func (p *Processor) analyzeSprite(ctx context.Context, work models.WorkItem) (models.SpriteResult, error) {
	sprite, err := extractor.LoadSprite(work.SpritePath)
	if err != nil {
		return models.SpriteResult{}, err
	}

	traits, err := p.classifier.Traits(sprite)
	if err != nil {
		return models.SpriteResult{}, err
	}

	samples, err := p.classifier.Sampler().SampleAll(sprite)
	if err != nil {
		return models.SpriteResult{}, err
	}

	result := models.SpriteResult{
		Filename:  filepath.Base(work.SpritePath),
		Traits:    traits,
		Regions:   samples,
		Palette:   sampler.Palette(sprite, p.opts.PaletteSize),
		Uncertain: traits.Uncertain(),
	}

	if p.features != nil {
		res := <-p.features.Features(ctx, work.Stem, samples)
		if res.Error != nil {
			return models.SpriteResult{}, fmt.Errorf("features: %w", res.Error)
		}
		result.Features = res.Embedding
	}

	if p.reviewer != nil && !traits.Eyes.Certain() {
		note, err := p.reviewer.Review(ctx, sprite, traits)
		if err != nil {
			p.logger.Warn("review failed", "sprite", work.Stem, "error", err)
		} else {
			result.ReviewNote = note
		}
	}

	if p.opts.SyncCaptions {
		if err := p.syncCaption(work.Stem, traits, &result); err != nil {
			return models.SpriteResult{}, err
		}
	}

	return result, nil
}

func (p *Processor) syncCaption(stem string, traits classifier.Traits, result *models.SpriteResult) error {
	dir := p.opts.CaptionDir
	text, err := captions.Read(dir, stem)
	if errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("caption missing, traits kept", "sprite", stem, "dir", dir)
		result.CaptionMissing = true
		return nil
	}
	if err != nil {
		return err
	}

	synced := captions.Synchronize(text, traits, captions.Options{Rewrite: p.opts.RewriteEyes})
	result.Caption = synced.Text
	result.CaptionSteps = synced.Steps
	if !synced.Changed {
		return nil
	}

	if err := captions.Write(dir, stem, synced.Text); err != nil {
		return err
	}
	result.CaptionChanged = true
	p.logger.Debug("caption updated", "sprite", stem, "steps", synced.Steps)
	return nil
}
