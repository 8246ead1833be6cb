package helpers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/linemap/internal/linemap"
)

// SupportedFormats lists the table renderings accepted by --format.
var SupportedFormats = []linemap.OutputFormat{
	linemap.FormatCSV,
	linemap.FormatJSON,
	linemap.FormatText,
}

// AddFormatFlag adds a standard --format/-f flag to a command. An empty
// default lets the command pick one based on its other flags.
func AddFormatFlag(cmd *cobra.Command, formatVar *string) {
	formatNames := make([]string, len(SupportedFormats))
	for i, f := range SupportedFormats {
		formatNames[i] = string(f)
	}

	description := fmt.Sprintf("Output format (%s)", strings.Join(formatNames, ", "))
	cmd.Flags().StringVarP(formatVar, "format", "f", "", description)

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatNames, cobra.ShellCompDirectiveNoFileComp
	})
}

// AddModuleFlag adds a standard --module/-m flag.
func AddModuleFlag(cmd *cobra.Command, moduleVar *string) {
	cmd.Flags().StringVarP(moduleVar, "module", "m", "", "Module name recorded in every row (default: binary base name)")
}

// ResolveFormat picks the explicit format when set, otherwise fallback.
func ResolveFormat(explicit, fallback string) (linemap.OutputFormat, error) {
	if explicit != "" {
		return linemap.ParseFormat(explicit)
	}
	return linemap.ParseFormat(fallback)
}
