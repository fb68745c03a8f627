package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	repeat, err := runCLI(t, []string{"config", "init", "--path", target})
	if err == nil {
		t.Fatalf("expected error without --overwrite, got:\n%s", repeat)
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestRenderTablePadsMissingCells(t *testing.T) {
	rendered := renderTable(
		[]string{"Job ID", "Status"},
		[][]string{{"abc"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	requireContains(t, rendered, "Job ID")
	requireContains(t, rendered, "abc")
}

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Result", statusOK, "done", false)
	requireContains(t, plain, "Result:")
	requireContains(t, plain, "[OK] done")

	colored := renderStatusLine("Result", statusError, "failed", true)
	requireContains(t, colored, ansiRed)
	requireContains(t, colored, ansiReset)
}
