package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jsxhost/internal/diagfmt"
	"jsxhost/internal/sourcemap"
	"jsxhost/internal/transform"
)

var transformCmd = &cobra.Command{
	Use:   "transform [file|-]",
	Short: "Transform one JSX source and print the result",
	Args:  cobra.MaximumNArgs(1),
	RunE:  transformSource,
}

func init() {
	addConfigFlags(transformCmd, false)
	transformCmd.Flags().String("label", "", "source label used in errors and the source map (default: file path)")
	transformCmd.Flags().StringP("output", "o", "", "write the result to file instead of stdout")
}

func transformSource(cmd *cobra.Command, args []string) error {
	env, cleanup, err := setupCommand(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	label, err := cmd.Flags().GetString("label")
	if err != nil {
		return fmt.Errorf("failed to get label flag: %w", err)
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}

	src, defaultLabel, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	if label == "" {
		label = defaultLabel
	}

	host, err := newHost(env, "")
	if err != nil {
		return err
	}
	opts := env.cfg.TransformOptions()
	opts.Sourcefile = label
	res, err := host.Transform(src, opts)
	if err != nil {
		var se *transform.SourceError
		if errors.As(err, &se) {
			fmt.Fprintln(cmd.ErrOrStderr(), se.Error())
			return reportedError{err: err}
		}
		return err
	}

	code := res.Code
	if res.Map != nil {
		name := label
		if name == "" {
			name = diagfmt.InlineLabel
		}
		if code, err = sourcemap.Embed(res.Code, res.Map, name, src); err != nil {
			return fmt.Errorf("failed to embed source map: %w", err)
		}
	}

	if output == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), code)
		return err
	}
	if err := os.WriteFile(output, []byte(code), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	return nil
}

// readSource returns the text of the single file argument, or stdin when
// there is none or it is "-", together with its default label.
func readSource(cmd *cobra.Command, args []string) (text, label string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), args[0], nil
}
