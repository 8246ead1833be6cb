// Package extract implements the 'linemap extract' command.
package extract

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/linemap/internal/cli/helpers"
	"github.com/coral-mesh/linemap/internal/linemap"
)

type options struct {
	output     string
	module     string
	format     string
	onePerLine bool
}

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "extract <binary>",
		Short: "Dump the line table of one binary",
		Long: `Dump every (module, file, line, address) mapping of a binary.

With -o the table is written atomically to the given file (default format
csv, or output.format from the config). Without -o the full table is printed
to stdout (default format text).`,
		Example: `  # Write mappings for a server build
  linemap extract ./build/server -o server.csv

  # Record a shared library under its soname, one address per line
  linemap extract ./libraft.so.1 -m libraft.so --one-per-line -o raft.csv

  # Inspect interactively
  linemap extract ./a.out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the table to this file instead of stdout")
	helpers.AddModuleFlag(cmd, &opts.module)
	helpers.AddFormatFlag(cmd, &opts.format)
	cmd.Flags().BoolVar(&opts.onePerLine, "one-per-line", false, "Keep only the first address of each source line")

	return cmd
}

func run(cmd *cobra.Command, path string, opts options) error {
	rt := helpers.RuntimeFrom(cmd.Context())

	fallback := string(linemap.FormatText)
	if opts.output != "" {
		fallback = rt.Config.Output.Format
	}
	format, err := helpers.ResolveFormat(opts.format, fallback)
	if err != nil {
		return err
	}

	table, err := linemap.NewExtractor(rt.Logger).ExtractFile(path, linemap.Options{Module: opts.module})
	if err != nil {
		return err
	}
	if opts.onePerLine {
		table = linemap.Unique(table)
	}

	if opts.output == "" {
		return linemap.Write(cmd.OutOrStdout(), table, format)
	}

	if err := linemap.Save(opts.output, table, format, rt.Logger); err != nil {
		return err
	}
	rt.Logger.Info().
		Str("path", opts.output).
		Int("records", len(table)).
		Msg("Wrote line mappings")
	return nil
}
