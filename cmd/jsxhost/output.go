package main

import (
	"fmt"
	"io"
	"strings"

	"jsxhost/internal/diag"
	"jsxhost/internal/diagfmt"
	"jsxhost/internal/pipeline"
)

type outputFormat string

const (
	formatPretty outputFormat = "pretty"
	formatJSON   outputFormat = "json"
	formatShort  outputFormat = "short"
)

func readOutputFormat(value string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", formatPretty:
		return formatPretty, nil
	case formatJSON:
		return formatJSON, nil
	case formatShort:
		return formatShort, nil
	}
	return "", fmt.Errorf("unsupported format %q (must be pretty, json or short)", value)
}

func readPathMode(value string) (diagfmt.PathMode, error) {
	mode, ok := diagfmt.ParsePathMode(strings.ToLower(strings.TrimSpace(value)))
	if !ok {
		return mode, fmt.Errorf("invalid --path-mode value %q (expected auto|absolute|relative|basename)", value)
	}
	return mode, nil
}

// printDiagnostics writes the run's diagnostics. JSON goes to out, the
// human formats to errOut.
func printDiagnostics(out, errOut io.Writer, env *cliEnv, run *pipeline.Run, format outputFormat, pathMode diagfmt.PathMode, baseURL string) error {
	bag := run.Diagnostics()
	bag.Dedup()
	if env.quiet && !bag.HasErrors() && format != formatJSON {
		return nil
	}
	switch format {
	case formatJSON:
		return diagfmt.JSON(out, bag, run.Files(), diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeSnippets:  true,
			PathMode:         pathMode,
			BaseURL:          baseURL,
			Max:              env.maxDiagnostics,
			IncludeNotes:     true,
		})
	case formatShort:
		_, err := io.WriteString(errOut, diag.FormatShortDiagnostics(bag.Items(), run.Files(), baseURL, true))
		return err
	default:
		diagfmt.Pretty(errOut, bag, run.Files(), diagfmt.PrettyOpts{
			Color:     env.colored,
			PathMode:  pathMode,
			BaseURL:   baseURL,
			ShowNotes: true,
		})
		return nil
	}
}

func printTimings(w io.Writer, env *cliEnv, run *pipeline.Run) {
	if !env.timings {
		return
	}
	fmt.Fprint(w, run.Timer().Summary())
}
