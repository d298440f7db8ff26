package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionSkipsConfig(t *testing.T) {
	// No MEDIA_* environment: version must not try to load config.
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	want := "mediactl " + commitHash + " (built " + buildTime + ")"
	if got := strings.TrimSpace(out.String()); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "worker", "migrate", "process", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (got %v, err %v)", name, cmd, err)
		}
	}
}

func TestProcessFlags(t *testing.T) {
	for _, flag := range []string{"media-id", "user-id", "key", "type"} {
		if processCmd.Flags().Lookup(flag) == nil {
			t.Errorf("process is missing --%s", flag)
		}
	}
}
