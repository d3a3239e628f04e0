package script

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{Pending, Loaded, true},
		{Loaded, Executed, true},
		{Loaded, Failed, true},
		{Pending, Executed, false},
		{Executed, Loaded, false},
		{Executed, Executed, false},
		{Failed, Executed, false},
		{Loaded, Pending, false},
	}
	for _, tt := range tests {
		err := Transition(tt.from, tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", tt.from, tt.to, err)
		}
	}
}

func TestValidate(t *testing.T) {
	good := []Descriptor{
		{Position: 0, Inline: true, Content: "a()"},
		{Position: 1, Origin: "https://example.test/b.js"},
	}
	if err := Validate(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gap := []Descriptor{{Position: 0, Inline: true}, {Position: 2, Inline: true}}
	if err := Validate(gap); err == nil {
		t.Fatal("expected error for non-contiguous positions")
	}

	noOrigin := []Descriptor{{Position: 0}}
	if err := Validate(noOrigin); err == nil {
		t.Fatal("expected error for external descriptor without origin")
	}
}

func TestTransformModeRequires(t *testing.T) {
	tagged := "/** @jsx React.DOM */\nvar a = <b/>;"
	plain := "var a = 1;"

	tests := []struct {
		mode    TransformMode
		content string
		want    bool
	}{
		{TransformPragma, tagged, true},
		{TransformPragma, plain, false},
		{TransformAlways, plain, true},
		{TransformNever, tagged, false},
	}
	for _, tt := range tests {
		if got := tt.mode.Requires(tt.content); got != tt.want {
			t.Errorf("%s on %q: want %v, got %v", tt.mode, tt.content, tt.want, got)
		}
	}

	if _, err := ParseTransformMode("sometimes"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if m, err := ParseTransformMode("Always"); err != nil || m != TransformAlways {
		t.Errorf("ParseTransformMode(Always) = %v, %v", m, err)
	}
}
