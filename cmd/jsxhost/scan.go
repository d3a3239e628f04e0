package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jsxhost/internal/discover"
	"jsxhost/internal/script"
)

var scanCmd = &cobra.Command{
	Use:   "scan <page.html|url|->",
	Short: "List the scripts a run would execute, in order",
	Args:  cobra.ExactArgs(1),
	RunE:  scanDocument,
}

func init() {
	scanCmd.Flags().String("format", "table", "output format (table|json)")
	scanCmd.Flags().String("base", "", "base URL for relative script references")
	scanCmd.Flags().String("mode", "", "transform mode to report (pragma|always|never, default from config)")
}

type scannedScript struct {
	Position  int    `json:"position"`
	Inline    bool   `json:"inline"`
	Origin    string `json:"origin,omitempty"`
	Type      string `json:"type"`
	Transform string `json:"transform"`
}

func scanDocument(cmd *cobra.Command, args []string) error {
	env, cleanup, err := setupCommand(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	baseFlag, err := cmd.Flags().GetString("base")
	if err != nil {
		return fmt.Errorf("failed to get base flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "table" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be table or json)", format)
	}

	doc, err := loadDocument(cmd.Context(), args[0], baseFlag, env.cfg.UserAgent, cmd.InOrStdin())
	if err != nil {
		return err
	}
	opts := env.cfg.Pipeline().Discover
	if flag := cmd.Flags().Lookup("mode"); flag != nil && flag.Changed {
		if opts.Mode, err = script.ParseTransformMode(flag.Value.String()); err != nil {
			return err
		}
	}
	descs, err := discover.Scan(strings.NewReader(doc.text), doc.base, opts)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	rows := make([]scannedScript, len(descs))
	for i, d := range descs {
		rows[i] = scannedScript{
			Position:  d.Position,
			Inline:    d.Inline,
			Origin:    d.Origin,
			Type:      d.Type,
			Transform: transformColumn(d),
		}
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tTRANSFORM\tSOURCE")
	for _, r := range rows {
		kind, src := "external", r.Origin
		if r.Inline {
			kind, src = "inline", "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Position, kind, r.Transform, src)
	}
	return tw.Flush()
}

// transformColumn says whether the script will be transformed. For
// external scripts in pragma mode that depends on content not fetched yet.
func transformColumn(d script.Descriptor) string {
	switch {
	case d.RequiresTransform != script.TransformPragma:
		return d.RequiresTransform.String()
	case !d.Inline:
		return "pragma"
	case d.RequiresTransform.Requires(d.Content):
		return "yes"
	default:
		return "no"
	}
}
