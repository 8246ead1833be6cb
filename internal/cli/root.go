package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/linemap/internal/cli/batch"
	"github.com/coral-mesh/linemap/internal/cli/extract"
	"github.com/coral-mesh/linemap/internal/cli/helpers"
	"github.com/coral-mesh/linemap/internal/config"
	"github.com/coral-mesh/linemap/internal/logging"
	"github.com/coral-mesh/linemap/pkg/version"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logPretty  bool
}

// NewRootCmd builds the linemap command tree.
func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "linemap",
		Short: "Extract source line to address mappings from DWARF debug info",
		Long: `Read the DWARF line tables of a compiled binary and list, for every
recommended statement boundary, the module, source file, line number and
machine address it maps to.

Binaries must be built with debug information (-g). ELF and Mach-O images
are supported, including DWARF 2 to 5 line tables.

Environment Variables:
  LINEMAP_CONFIG         Override config directory (default: ~/)
  LINEMAP_LOG_LEVEL      Log level (trace, debug, info, warn, error)
  LINEMAP_LOG_PRETTY     Human-readable log output (true/false)
  LINEMAP_OUTPUT_FORMAT  Default format for -o output (csv, json, text)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupRuntime(cmd, flags)
		},
	}

	addRootFlags(cmd.PersistentFlags(), &flags)

	cmd.AddCommand(extract.NewExtractCmd())
	cmd.AddCommand(batch.NewBatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func addRootFlags(fs *pflag.FlagSet, flags *rootFlags) {
	fs.StringVar(&flags.configPath, "config", "", "Config file (default: ~/.linemap/config.yaml)")
	fs.StringVar(&flags.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.BoolVar(&flags.logPretty, "log-pretty", true, "Human-readable log output")
}

// setupRuntime loads the configuration, applies flag overrides and stores
// the result for subcommands.
func setupRuntime(cmd *cobra.Command, flags rootFlags) error {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath, false)
	} else {
		cfg, err = config.NewLoader().Load()
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		if _, ok := logging.ParseLevel(flags.logLevel); !ok {
			return fmt.Errorf("invalid --log-level %q", flags.logLevel)
		}
		cfg.Log.Level = flags.logLevel
	}
	if cmd.Flags().Changed("log-pretty") {
		cfg.Log.Pretty = flags.logPretty
	}

	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()

	cmd.SetContext(helpers.WithRuntime(cmd.Context(), &helpers.Runtime{
		Config: cfg,
		Logger: logging.New(logCfg),
	}))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("linemap version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
