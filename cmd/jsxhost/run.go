package main

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"jsxhost/internal/discover"
	"jsxhost/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <page.html|url|->",
	Short: "Run the JSX scripts of an HTML document in order",
	Long: `Run discovers the scripts of an HTML document, fetches external ones
concurrently and executes all of them in document order in one shared scope.
Scripts whose leading docblock carries @jsx are transformed first.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocument,
}

func init() {
	addConfigFlags(runCmd, true)
	runCmd.Flags().String("failure", "fail-fast", "what a failing script does to later ones (fail-fast|isolate)")
	runCmd.Flags().Int("jobs", pipeline.DefaultJobs, "maximum concurrent fetches")
	runCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	runCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|short)")
	runCmd.Flags().String("path-mode", "auto", "how script labels are printed (auto|absolute|relative|basename)")
	runCmd.Flags().String("base", "", "base URL for relative script references")
}

func runDocument(cmd *cobra.Command, args []string) error {
	var executed, total atomic.Int64
	status := func() string {
		return fmt.Sprintf("%d/%d scripts executed", executed.Load(), total.Load())
	}
	env, cleanup, err := setupCommand(cmd, status)
	if err != nil {
		return err
	}
	defer cleanup()

	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := readOutputFormat(formatFlag)
	if err != nil {
		return err
	}
	pathModeFlag, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	pathMode, err := readPathMode(pathModeFlag)
	if err != nil {
		return err
	}
	baseFlag, err := cmd.Flags().GetString("base")
	if err != nil {
		return fmt.Errorf("failed to get base flag: %w", err)
	}

	ctx := cmd.Context()
	doc, err := loadDocument(ctx, args[0], baseFlag, env.cfg.UserAgent, cmd.InOrStdin())
	if err != nil {
		return err
	}
	host, err := newHost(env, doc.root)
	if err != nil {
		return err
	}

	run := host.NewRun()
	idx := run.Timer().Begin("discover")
	descs, err := discover.Scan(strings.NewReader(doc.text), doc.base, host.Config.Discover)
	run.Timer().End(idx, fmt.Sprintf("%d scripts", len(descs)))
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	total.Store(int64(len(descs)))

	counter := pipeline.SinkFunc(func(ev pipeline.Event) {
		if ev.Stage == pipeline.StageExecute && ev.Status == pipeline.StatusDone {
			executed.Add(1)
		}
	})

	var rep *pipeline.Report
	var runErr error
	if format == formatPretty && !env.quiet && shouldUseTUI(mode) && len(descs) > 0 {
		rep, runErr = runScriptsWithUI(ctx, args[0], host, run, descs, counter)
	} else {
		host.Sink = counter
		rep, runErr = run.RunScripts(ctx, descs)
	}

	if err := printDiagnostics(cmd.OutOrStdout(), cmd.ErrOrStderr(), env, run, format, pathMode, doc.base.String()); err != nil {
		return err
	}
	printTimings(cmd.ErrOrStderr(), env, run)
	if rep != nil && !env.quiet && format != formatJSON {
		fmt.Fprintf(cmd.ErrOrStderr(), "executed %d of %d scripts", len(rep.Executed), rep.Scripts)
		if len(rep.Failed) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), ", %d failed", len(rep.Failed))
		}
		if len(rep.Skipped) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), ", %d skipped", len(rep.Skipped))
		}
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if runErr != nil {
		if rep == nil {
			return runErr
		}
		return reportedError{err: runErr}
	}
	if rep != nil && len(rep.Failed) > 0 {
		return reportedError{err: fmt.Errorf("%d script(s) failed", len(rep.Failed))}
	}
	return nil
}
