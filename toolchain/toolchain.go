// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package toolchain runs cargo-concordium and ccd-js-gen as child processes.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	log "github.com/inconshreveable/log15"
)

// Executable names an external tool.
type Executable string

const (
	CargoConcordium Executable = "cargo-concordium"
	CCDJSGen        Executable = "ccd-js-gen"
)

// TaskType identifies tasks created by this package.
const TaskType = "concordium"

// Task commands.
const (
	BuildCommand             = "build"
	TestCommand              = "test"
	GenerateJSClientsCommand = "generate-js-clients"
)

// Task describes one tool invocation before it runs.
type Task struct {
	Type    string   `json:"type"`
	Command string   `json:"command"`
	Name    string   `json:"name"`
	Cwd     string   `json:"cwd,omitempty"`
	Args    []string `json:"args,omitempty"`

	Executable Executable `json:"-"`
	// Path is the resolved executable.
	Path string `json:"path"`
}

// Toolchain resolves and runs the external tools.
type Toolchain struct {
	cfg  Config
	goos string
	log  log.Logger
}

func New(cfg Config) *Toolchain {
	return &Toolchain{
		cfg:  cfg,
		goos: runtime.GOOS,
		log:  log.New("module", "toolchain"),
	}
}

// Path returns the executable to run for [name]: the validated custom path
// if one is configured, the bundled copy otherwise.
func (t *Toolchain) Path(name Executable) (string, error) {
	if custom := t.cfg.custom(name); custom != "" {
		return ValidateCustomPath(name, custom, t.goos)
	}
	return t.bundledPath(name)
}

func (t *Toolchain) bundledPath(name Executable) (string, error) {
	if t.cfg.BundledDir == "" {
		path, err := exec.LookPath(string(name))
		if err != nil {
			return "", fmt.Errorf("%w: %s not found on PATH", ErrConfig, name)
		}
		return path, nil
	}
	switch name {
	case CargoConcordium:
		file := string(name)
		if t.goos == "windows" {
			file += ".exe"
		}
		return filepath.Join(t.cfg.BundledDir, "executables", file), nil
	case CCDJSGen:
		file := string(name)
		if t.goos == "windows" {
			file += ".ps1"
		}
		return filepath.Join(t.cfg.BundledDir, "node_modules", ".bin", file), nil
	default:
		return "", fmt.Errorf("%w: unknown executable %q", ErrConfig, name)
	}
}

// Version returns the tool's --version output. ccd-js-gen prints only the
// number, so its output is prefixed with the tool name.
func (t *Toolchain) Version(ctx context.Context, name Executable) (string, error) {
	path, err := t.Path(name)
	if err != nil {
		return "", err
	}
	var stdout bytes.Buffer
	if err := t.command(ctx, name, path, []string{"--version"}, "", &stdout, io.Discard).Run(); err != nil {
		return "", fmt.Errorf("%s --version: %w", name, err)
	}
	version := strings.TrimSpace(stdout.String())
	if name == CCDJSGen {
		version = fmt.Sprintf("%s %s", CCDJSGen, version)
	}
	return version, nil
}

// BuildTask builds the contract in [cwd].
func (t *Toolchain) BuildTask(cwd string) (*Task, error) {
	args := append([]string{"concordium", "build"}, t.cfg.AdditionalBuildArgs...)
	return t.task(CargoConcordium, BuildCommand, "Build smart contract", cwd, args)
}

// TestTask runs the contract tests in [cwd].
func (t *Toolchain) TestTask(cwd string) (*Task, error) {
	args := append([]string{"concordium", "test"}, t.cfg.AdditionalTestArgs...)
	return t.task(CargoConcordium, TestCommand, "Test smart contract", cwd, args)
}

// GenerateClientsTask generates TypeScript/JavaScript clients for the
// module at [modulePath] into [outDir].
func (t *Toolchain) GenerateClientsTask(cwd, modulePath, outDir string) (*Task, error) {
	args := append([]string{"--module", modulePath, "--out-dir", outDir}, t.cfg.AdditionalGenJSArgs...)
	return t.task(CCDJSGen, GenerateJSClientsCommand, "Generate JS clients", cwd, args)
}

func (t *Toolchain) task(name Executable, command, title, cwd string, args []string) (*Task, error) {
	path, err := t.Path(name)
	if err != nil {
		return nil, err
	}
	return &Task{
		Type:       TaskType,
		Command:    command,
		Name:       title,
		Cwd:        cwd,
		Args:       args,
		Executable: name,
		Path:       path,
	}, nil
}

// Run executes [task], streaming its output.
func (t *Toolchain) Run(ctx context.Context, task *Task, stdout, stderr io.Writer) error {
	t.log.Info("running task", "command", task.Command, "path", task.Path, "cwd", task.Cwd)
	cmd := t.command(ctx, task.Executable, task.Path, task.Args, task.Cwd, stdout, stderr)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", task.Executable, task.Command, err)
	}
	return nil
}

// command builds the process for [path]. On Windows ccd-js-gen is a
// PowerShell script and runs through powershell.exe.
func (t *Toolchain) command(ctx context.Context, name Executable, path string, args []string, cwd string, stdout, stderr io.Writer) *exec.Cmd {
	var cmd *exec.Cmd
	if name == CCDJSGen && t.goos == "windows" {
		script := strings.Join(append([]string{path}, args...), " ")
		cmd = exec.CommandContext(ctx, "powershell.exe", "-Command", script)
	} else {
		cmd = exec.CommandContext(ctx, path, args...)
	}
	cmd.Dir = cwd
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd
}
