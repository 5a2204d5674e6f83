package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bespokepunks/traitsampler/internal/analyzer"
	"github.com/bespokepunks/traitsampler/internal/captions"
	"github.com/bespokepunks/traitsampler/internal/classifier"
	"github.com/bespokepunks/traitsampler/internal/embeddings"
	"github.com/bespokepunks/traitsampler/internal/regions"
	"github.com/bespokepunks/traitsampler/internal/sampler"
	"github.com/bespokepunks/traitsampler/internal/storage"
)

func newSampleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample [sprite-dir]",
		Short: "Classify every sprite in a directory",
		Long: `Classify every <stem>.png in the sprite directory and write
trait_results.json into the output directory.

With --sync-captions each <stem>.txt caption is cleaned up and gets the
detected eye color and mouth expression inserted. With --postgres results are also upserted
into the caption_reviews table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if len(args) == 1 {
				cfg.SpriteDir = args[0]
			}
			flags := cmd.Flags()
			if flags.Changed("output") {
				cfg.OutputDir, _ = flags.GetString("output")
			}
			if flags.Changed("captions") {
				cfg.CaptionDir, _ = flags.GetString("captions")
			}
			if flags.Changed("regions") {
				cfg.RegionsFile, _ = flags.GetString("regions")
			}
			if flags.Changed("workers") {
				cfg.Workers, _ = flags.GetInt("workers")
			}
			if flags.Changed("top-k") {
				cfg.TopK, _ = flags.GetInt("top-k")
			}
			if flags.Changed("sync-captions") {
				cfg.SyncCaptions, _ = flags.GetBool("sync-captions")
			}
			if flags.Changed("rewrite-eyes") {
				cfg.RewriteEyes, _ = flags.GetBool("rewrite-eyes")
			}
			if flags.Changed("review") {
				cfg.Review, _ = flags.GetBool("review")
			}
			if flags.Changed("postgres") {
				cfg.UsePostgres, _ = flags.GetBool("postgres")
			}
			if err := cfg.Validate(); err != nil {
				return a.fail("invalid configuration", err)
			}

			ctx := cmd.Context()

			regionMap, err := loadRegions(cfg.RegionsFile)
			if err != nil {
				return a.fail("failed to load regions", err)
			}
			c := classifier.New(sampler.New(regionMap, cfg.TopK))

			stores := storage.Multi{storage.NewStorage(cfg.OutputDir)}
			if cfg.UsePostgres {
				pg, err := storage.NewPostgresStorage(ctx, cfg.Postgres, a.logger)
				if err != nil {
					return a.fail("failed to open postgres", err)
				}
				defer pg.Close()
				stores = append(stores, pg)
			}

			features := embeddings.NewService(cfg.Workers)
			defer features.Close()

			var reviewer analyzer.Reviewer
			if cfg.Review {
				r, err := analyzer.NewVisionReviewer(ctx, cfg.Ollama, a.logger)
				if err != nil {
					return a.fail("failed to initialize vision reviewer", err)
				}
				reviewer = r
			}

			p := analyzer.NewProcessor(c, stores, features, reviewer, a.logger, analyzer.Options{
				Workers:      cfg.Workers,
				CaptionDir:   cfg.Captions(),
				SyncCaptions: cfg.SyncCaptions,
				RewriteEyes:  cfg.RewriteEyes,
			})
			summary, err := p.ProcessDir(ctx, cfg.SpriteDir)
			if err != nil {
				return a.fail("failed to process sprites", err)
			}

			if cfg.SyncCaptions && len(cfg.MirrorDirs) > 0 && len(summary.Changed) > 0 {
				report, err := captions.Mirror(ctx, cfg.Captions(), cfg.MirrorDirs, summary.Changed)
				if err != nil {
					return a.fail("failed to mirror captions", err)
				}
				logMirror(a, report)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "classified %d/%d sprites, %d failed, %d captions changed, %d need review\n",
				summary.Classified, summary.Total, len(summary.Failed), summary.CaptionsChanged, summary.NeedsReview)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", "", "output directory (TRAITS_OUTPUT_DIR)")
	f.String("captions", "", "caption directory, defaults to the sprite directory (TRAITS_CAPTION_DIR)")
	f.String("regions", "", "YAML file overriding region rectangles (TRAITS_REGIONS_FILE)")
	f.IntP("workers", "w", 0, "worker count (TRAITS_WORKERS)")
	f.Int("top-k", 0, "colors kept per region (TRAITS_TOP_K)")
	f.Bool("sync-captions", false, "insert detected eye colors and expressions into captions (TRAITS_SYNC_CAPTIONS)")
	f.Bool("rewrite-eyes", false, "replace caption eye hues and expressions the rules are certain are wrong (TRAITS_REWRITE_EYES)")
	f.Bool("review", false, "ask the Ollama vision model about uncertain eye labels (TRAITS_REVIEW)")
	f.Bool("postgres", false, "also upsert results into caption_reviews (TRAITS_POSTGRES)")
	return cmd
}

// loadRegions returns the validated region table, with overrides from path
// when it is set.
func loadRegions(path string) (regions.Map, error) {
	if path != "" {
		return regions.Load(path)
	}
	m := regions.Default()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func logMirror(a *app, report captions.MirrorReport) {
	a.logger.Info("captions mirrored", "copied", report.Copied)
	for _, dir := range report.SkippedDirs {
		a.logger.Warn("mirror directory missing", "dir", dir)
	}
	for _, stem := range report.MissingSources {
		a.logger.Warn("caption missing", "sprite", stem)
	}
}

func newMirrorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror <caption-dir> <dest-dir>...",
		Short: "Copy every caption in a directory to other training directories",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			stems, err := captions.ListStems(src)
			if err != nil {
				return a.fail("failed to list captions", err)
			}

			report, err := captions.Mirror(cmd.Context(), src, args[1:], stems)
			if err != nil {
				return a.fail("failed to mirror captions", err)
			}
			logMirror(a, report)
			fmt.Fprintf(cmd.OutOrStdout(), "copied %d caption files\n", report.Copied)
			return nil
		},
	}
}

func newInitSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-schema",
		Short: "Create the caption_reviews table and vector index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.InitSchema(cmd.Context(), a.cfg.Postgres); err != nil {
				return a.fail("failed to initialize schema", err)
			}
			a.logger.Info("schema ready", "host", a.cfg.Postgres.Host, "db", a.cfg.Postgres.DBName)
			return nil
		},
	}
}

func newSimilarCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <filename>",
		Short: "List sprites with the closest color features",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			pg, err := storage.NewPostgresStorage(cmd.Context(), a.cfg.Postgres, a.logger)
			if err != nil {
				return a.fail("failed to open postgres", err)
			}
			defer pg.Close()

			hits, err := pg.SearchSimilar(cmd.Context(), args[0], limit)
			if err != nil {
				return a.fail("failed to search", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(hits)
		},
	}
	cmd.Flags().IntP("limit", "n", 5, "number of neighbours")
	return cmd
}
