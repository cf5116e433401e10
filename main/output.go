// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/inconshreveable/log15"
	"sigs.k8s.io/yaml"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"

	logFormatJSON = "json"
)

// setupLogging routes the root logger to stderr.
func setupLogging(level, format string) error {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return err
	}
	var fmtr log.Format
	switch format {
	case logFormatJSON:
		fmtr = log.JsonFormat()
	default:
		fmtr = log.TerminalFormat()
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, fmtr)))
	return nil
}

// render writes [v] to [w] in the configured output format.
func render(w io.Writer, format string, v interface{}) error {
	var (
		out []byte
		err error
	)
	switch format {
	case outputYAML:
		out, err = yaml.Marshal(v)
	default:
		out, err = json.MarshalIndent(v, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(out))
	return err
}
