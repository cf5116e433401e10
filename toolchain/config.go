// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package toolchain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Configuration keys, shared with the CLI flags.
const (
	CustomExecutableKey      = "custom-executable"
	CustomJSGenExecutableKey = "custom-ccd-js-gen-executable"
	BundledDirKey            = "bundled-dir"
	AdditionalBuildArgsKey   = "additional-build-args"
	AdditionalTestArgsKey    = "additional-test-args"
	AdditionalGenJSArgsKey   = "additional-gen-js-args"
)

// ErrConfig is a user configuration error.
var ErrConfig = errors.New("configuration error")

type Config struct {
	// CustomExecutable replaces the bundled cargo-concordium.
	CustomExecutable string
	// CustomJSGenExecutable replaces the bundled ccd-js-gen.
	CustomJSGenExecutable string
	// BundledDir holds executables/ and node_modules/.bin/. When empty the
	// executables are looked up on PATH.
	BundledDir string

	AdditionalBuildArgs []string
	AdditionalTestArgs  []string
	AdditionalGenJSArgs []string
}

func (c *Config) custom(name Executable) string {
	switch name {
	case CargoConcordium:
		return c.CustomExecutable
	case CCDJSGen:
		return c.CustomJSGenExecutable
	default:
		return ""
	}
}

// ValidateCustomPath expands a leading ~ and checks that [path] names an
// executable file. Execute permission is not checked on Windows.
func ValidateCustomPath(name Executable, path, goos string) (string, error) {
	resolved := path
	if strings.Contains(resolved, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		resolved = strings.Replace(resolved, "~", home, 1)
	}

	info, err := os.Stat(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: custom %s executable path does not exist. %s", ErrConfig, name, path)
	case err != nil:
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: custom %s executable path is not a file. %s", ErrConfig, name, path)
	}
	if goos != "windows" && info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: custom %s executable path is not executable. %s", ErrConfig, name, path)
	}
	return resolved, nil
}
