// Package batch implements the 'linemap batch' command, which extracts a
// set of binaries into one mappings directory.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/linemap/internal/cli/helpers"
	"github.com/coral-mesh/linemap/internal/config"
	"github.com/coral-mesh/linemap/internal/constants"
	"github.com/coral-mesh/linemap/internal/image"
	"github.com/coral-mesh/linemap/internal/linemap"
)

// Options tunes a batch run.
type Options struct {
	// OutDir overrides the manifest out_dir.
	OutDir string
	// Combined, when set, also receives the concatenation of every table.
	Combined string
	// Force re-extracts images whose fingerprint is unchanged.
	Force bool
}

// Result summarizes one batch run.
type Result struct {
	RunID     string
	Extracted []string
	UpToDate  []string
	Records   int
}

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Extract every binary listed in a manifest",
		Long: `Extract the line tables of every image listed in a manifest into
<out-dir>/<module>.csv.

The fingerprint of each image (its build ID, or an xxh3 hash of the file)
is recorded in <out-dir>/linemap.lock.yaml. Images whose fingerprint has not
changed since the last run are skipped unless --force is given. The first
failing image stops the batch.

Manifest format:
  out_dir: mappings
  images:
    - path: ./build/server
    - path: ./build/libraft.so.1
      module: libraft.so`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := helpers.RuntimeFrom(cmd.Context())

			m, err := config.LoadManifest(args[0])
			if err != nil {
				return err
			}

			res, err := NewRunner(rt.Logger).Run(m, opts)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d extracted, %d up to date, %d records\n",
				len(res.Extracted), len(res.UpToDate), res.Records)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "Mappings directory (default: manifest out_dir, then ./mappings)")
	cmd.Flags().StringVar(&opts.Combined, "combined", "", "Also write the concatenation of all tables to this CSV file")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Re-extract images even when their fingerprint is unchanged")

	return cmd
}

// Runner extracts the images of a manifest.
type Runner struct {
	logger    zerolog.Logger
	extractor *linemap.Extractor
}

// NewRunner creates a batch runner.
func NewRunner(logger zerolog.Logger) *Runner {
	return &Runner{
		logger:    logger.With().Str("component", "batch").Logger(),
		extractor: linemap.NewExtractor(logger),
	}
}

// Run processes every image of m in manifest order.
func (r *Runner) Run(m *config.Manifest, opts Options) (*Result, error) {
	outDir := opts.OutDir
	if outDir == "" {
		outDir = m.OutDir
	}
	if outDir == "" {
		outDir = constants.DefaultOutDir
	}

	// #nosec G301 - mappings are meant to be shared with analysis tooling.
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	lockPath := config.LockPath(outDir)
	lock, err := config.LoadLock(lockPath)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.NewString()}
	logger := r.logger.With().Str("run_id", res.RunID).Logger()
	var combined linemap.Table

	for _, entry := range m.Images {
		table, fresh, err := r.image(logger, entry, outDir, lock, opts.Force)
		if err != nil {
			return nil, err
		}
		if fresh {
			res.UpToDate = append(res.UpToDate, entry.Module)
		} else {
			res.Extracted = append(res.Extracted, entry.Module)
			lock.RunID = res.RunID
			if err := lock.Save(lockPath, logger); err != nil {
				return nil, err
			}
		}
		res.Records += len(table)
		if opts.Combined != "" {
			combined = append(combined, table...)
		}
	}

	if opts.Combined != "" {
		if err := linemap.Save(opts.Combined, combined, linemap.FormatCSV, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Int("extracted", len(res.Extracted)).
		Int("up_to_date", len(res.UpToDate)).
		Int("records", res.Records).
		Str("out_dir", outDir).
		Msg("Batch complete")
	return res, nil
}

// image extracts one entry unless its table is current. It reports whether
// the existing table was reused.
func (r *Runner) image(logger zerolog.Logger, entry config.ImageEntry, outDir string, lock *config.Lock, force bool) (linemap.Table, bool, error) {
	out := filepath.Join(outDir, entry.Module+".csv")
	logger = logger.With().Str("module", entry.Module).Logger()

	fingerprint, err := image.Fingerprint(entry.Path)
	if err != nil {
		return nil, false, &linemap.Error{Path: entry.Path, Kind: linemap.ErrNotFound, UnitOffset: -1, Err: err}
	}

	if !force && lock.Fresh(entry.Module, fingerprint) {
		table, err := linemap.Load(out)
		switch {
		case err == nil:
			logger.Info().Str("fingerprint", fingerprint).Msg("Image unchanged, reusing table")
			return table, true, nil
		case errors.Is(err, os.ErrNotExist):
			logger.Debug().Str("path", out).Msg("Locked table is missing, extracting again")
		default:
			logger.Warn().Err(err).Str("path", out).Msg("Locked table is unreadable, extracting again")
		}
	}

	table, err := r.extractor.ExtractFile(entry.Path, linemap.Options{Module: entry.Module})
	if err != nil {
		return nil, false, err
	}
	if err := linemap.Save(out, table, linemap.FormatCSV, logger); err != nil {
		return nil, false, err
	}

	lock.Images[entry.Module] = fingerprint
	return table, false, nil
}
