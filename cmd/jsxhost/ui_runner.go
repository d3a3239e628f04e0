package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"jsxhost/internal/pipeline"
	"jsxhost/internal/script"
	"jsxhost/internal/ui"
)

type runOutcome struct {
	report *pipeline.Report
	err    error
}

// runScriptsWithUI runs descs while a Bubble Tea program renders progress.
// extra, if set, also receives every event.
func runScriptsWithUI(ctx context.Context, title string, host *pipeline.Host, run *pipeline.Run, descs []script.Descriptor, extra pipeline.ProgressSink) (*pipeline.Report, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	forward := pipeline.ChannelSink{Ch: events}
	host.Sink = pipeline.SinkFunc(func(ev pipeline.Event) {
		if extra != nil {
			extra.OnEvent(ev)
		}
		forward.OnEvent(ev)
	})
	go func() {
		rep, err := run.RunScripts(ctx, descs)
		outcomeCh <- runOutcome{report: rep, err: err}
		close(events)
	}()

	labels := make([]string, len(descs))
	for i, d := range descs {
		labels[i] = d.String()
	}
	model := ui.NewProgressModel(title, labels, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// программа могла выйти раньше; не блокируем отправителя
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
