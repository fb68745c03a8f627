package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"luster/internal/config"
)

// Result describes the outcome of one startup check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWorkerCommand verifies the enhancement worker is resolvable on PATH
// or as an absolute path.
func CheckWorkerCommand(command string) Result {
	const name = "Worker"

	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Result{Name: name, Detail: "no worker command configured"}
	}
	resolved, err := exec.LookPath(trimmed)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", trimmed, err)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// Run evaluates every startup check for the given config. The daemon logs
// failures but only directory problems are fatal; a missing worker binary
// surfaces per job instead.
func Run(cfg *config.Config) []Result {
	return []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckWorkerCommand(cfg.Worker.Command),
	}
}
