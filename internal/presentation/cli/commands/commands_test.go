package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
)

// executeCommand executes a cobra command with the given args.
func executeCommand(root *cobra.Command, args ...string) error {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	return root.Execute()
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if cmd == nil {
		t.Fatal("NewRootCmd returned nil")
	}

	if cmd.Use != "spendgate" {
		t.Errorf("expected Use='spendgate', got %q", cmd.Use)
	}

	wantSubcmds := []string{"version", "init", "chat", "transcribe", "moderate", "cache", "budget"}
	subcmds := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcmds[sub.Name()] = true
	}

	for _, want := range wantSubcmds {
		if !subcmds[want] {
			t.Errorf("missing subcommand: %s", want)
		}
	}

	wantFlags := []string{"config", "output", "verbose"}
	for _, flag := range wantFlags {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag: %s", flag)
		}
	}
}

func TestVersionCmd_NoError(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"basic", []string{"version"}},
		{"short", []string{"version", "--short"}},
		{"json", []string{"version", "-o", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			if err := executeCommand(cmd, tt.args...); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTranscribeCmd_RequiresDuration(t *testing.T) {
	cmd := NewRootCmd()
	err := executeCommand(cmd, "transcribe", "note.ogg")
	if err == nil {
		t.Error("expected error when --duration is missing")
	}
}

func TestModerateCmd_RequiresFileArg(t *testing.T) {
	cmd := NewRootCmd()
	err := executeCommand(cmd, "moderate")
	if err == nil {
		t.Error("expected error when image file argument is missing")
	}
}
