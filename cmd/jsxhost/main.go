package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"jsxhost/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "jsxhost",
	Short: "Run JSX script fragments of a document in order",
	Long: `jsxhost discovers text/jsx scripts in an HTML document, fetches them
concurrently, transforms the ones whose docblock carries @jsx and executes
everything in document order inside one shared JavaScript scope.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// main registers subcommands and persistent flags and executes the root
// command. Any command error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Bool("verbose", false, "log pipeline activity to stderr")
	flags.String("config", "", "path to jsxhost.toml (default: search upwards from the working directory)")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	flags.String("trace", "", "write trace events to file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "ring buffer capacity for ring/both trace modes")
	flags.Duration("trace-heartbeat", 0, "emit heartbeat trace events at this interval (0 disables)")

	flags.String("cpu-profile", "", "write CPU profile to file")
	flags.String("mem-profile", "", "write heap profile to file on exit")
	flags.String("runtime-trace", "", "write Go runtime trace to file")

	if err := rootCmd.Execute(); err != nil {
		printCommandError(err)
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
