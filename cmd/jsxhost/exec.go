package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec [file...]",
	Short: "Evaluate sources in one shared scope and print the last value",
	Long: `Exec evaluates each file (or each --eval snippet) in order in a single
JavaScript scope, transforming the ones tagged with @jsx, and prints the
completion value of the last one.`,
	RunE: execSources,
}

func init() {
	addConfigFlags(execCmd, true)
	execCmd.Flags().StringArrayP("eval", "e", nil, "evaluate this code (repeatable, runs after the files)")
	execCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|short)")
}

func execSources(cmd *cobra.Command, args []string) error {
	env, cleanup, err := setupCommand(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	snippets, err := cmd.Flags().GetStringArray("eval")
	if err != nil {
		return fmt.Errorf("failed to get eval flag: %w", err)
	}
	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := readOutputFormat(formatFlag)
	if err != nil {
		return err
	}
	if len(args) == 0 && len(snippets) == 0 {
		return fmt.Errorf("nothing to evaluate: pass files or --eval")
	}

	host, err := newHost(env, "")
	if err != nil {
		return err
	}
	run := host.NewRun()

	type source struct{ label, text string }
	var sources []source
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		sources = append(sources, source{label: path, text: string(data)})
	}
	for _, code := range snippets {
		sources = append(sources, source{text: code})
	}

	var last any
	for _, src := range sources {
		v, err := run.Execute(src.text, src.label)
		if err != nil {
			if perr := printDiagnostics(cmd.OutOrStdout(), cmd.ErrOrStderr(), env, run, format, 0, ""); perr != nil {
				return perr
			}
			return reportedError{err: err}
		}
		last = v
	}
	printTimings(cmd.ErrOrStderr(), env, run)
	if last != nil {
		fmt.Fprintln(cmd.OutOrStdout(), last)
	}
	return nil
}
