// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package module

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"

	log "github.com/inconshreveable/log15"
)

const (
	// PrefixLen is the size of the version/length header carried by versioned modules.
	PrefixLen = 8

	// InitPrefix marks exported functions that initialize a contract.
	InitPrefix = "init_"

	// SchemaSection is the custom section holding the embedded contract schema.
	SchemaSection = "concordium-schema"
	// BuildInfoSection is only present in modules produced by a reproducible build.
	BuildInfoSection = "concordium-build-info"
)

var (
	// Marker is the magic number every Wasm binary starts with.
	Marker = [4]byte{0x00, 0x61, 0x73, 0x6d}

	ErrFormat  = errors.New("not a valid module")
	ErrCompile = errors.New("module rejected by compiler")

	_ Inspector = &Introspector{}
)

// Info is what the introspector learned about a module.
type Info struct {
	Ref Ref `json:"moduleRef"`

	// PrefixLength is 0 for unversioned modules and [PrefixLen] otherwise.
	PrefixLength int `json:"prefixLength"`
	// Version and Length are decoded from the prefix when present.
	Version *uint32 `json:"version,omitempty"`
	Length  *uint32 `json:"length,omitempty"`

	// ContractNames are the init_ exports with the prefix removed, sorted.
	ContractNames []string `json:"contractNames"`
	// ReceiveNames are the "<contract>.<entrypoint>" exports, sorted.
	ReceiveNames []string `json:"receiveNames,omitempty"`
	// EmbeddedSchema is the base64 schema section, empty when the module has none.
	EmbeddedSchema    string `json:"embeddedSchema,omitempty"`
	ReproducibleBuild bool   `json:"reproducibleBuild"`
}

// HasEmbeddedSchema reports whether the module carries a schema section.
func (i *Info) HasEmbeddedSchema() bool { return i.EmbeddedSchema != "" }

// Inspector extracts contract names and schema from module bytes.
type Inspector interface {
	Inspect(ctx context.Context, source []byte) (*Info, error)
}

// PrefixLength returns how many leading bytes of [source] precede the Wasm marker.
func PrefixLength(source []byte) (int, error) {
	if len(source) < len(Marker) {
		return 0, fmt.Errorf("%w: byte length of a module needs to be at least %d", ErrFormat, len(Marker))
	}
	if bytes.Equal(source[:len(Marker)], Marker[:]) {
		return 0, nil
	}
	if len(source) < PrefixLen+len(Marker) {
		return 0, fmt.Errorf("%w: %d bytes cannot hold a versioned module", ErrFormat, len(source))
	}
	return PrefixLen, nil
}

// Introspector compiles modules with wazero without instantiating them.
type Introspector struct {
	config wazero.RuntimeConfig
	log    log.Logger
}

// NewIntrospector returns an introspector that keeps custom sections
// around so the schema can be read back.
func NewIntrospector() *Introspector {
	return &Introspector{
		config: wazero.NewRuntimeConfigInterpreter().WithCustomSections(true),
		log:    log.New("module", "introspect"),
	}
}

// Inspect strips the optional prefix, compiles the module and reads its
// init_ exports and custom sections.
func (i *Introspector) Inspect(ctx context.Context, source []byte) (*Info, error) {
	prefixLen, err := PrefixLength(source)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Ref:           RefOf(source),
		PrefixLength:  prefixLen,
		ContractNames: []string{},
	}
	if prefixLen == PrefixLen {
		version := binary.BigEndian.Uint32(source[0:4])
		length := binary.BigEndian.Uint32(source[4:8])
		info.Version = &version
		info.Length = &length
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, i.config)
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, source[prefixLen:])
	if err != nil {
		i.log.Debug("module failed to compile", "moduleRef", info.Ref, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	defer compiled.Close(ctx)

	for name := range compiled.ExportedFunctions() {
		switch {
		case strings.HasPrefix(name, InitPrefix):
			info.ContractNames = append(info.ContractNames, strings.TrimPrefix(name, InitPrefix))
		case strings.Contains(name, "."):
			info.ReceiveNames = append(info.ReceiveNames, name)
		}
	}
	sort.Strings(info.ContractNames)
	sort.Strings(info.ReceiveNames)

	for _, section := range compiled.CustomSections() {
		switch section.Name() {
		case SchemaSection:
			// First section wins when a module carries several.
			if info.EmbeddedSchema == "" {
				info.EmbeddedSchema = base64.StdEncoding.EncodeToString(section.Data())
			}
		case BuildInfoSection:
			info.ReproducibleBuild = true
		}
	}

	i.log.Debug("inspected module",
		"moduleRef", info.Ref,
		"prefixLength", prefixLen,
		"contracts", len(info.ContractNames),
		"schema", info.HasEmbeddedSchema(),
	)
	return info, nil
}
