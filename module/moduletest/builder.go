// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// moduletest assembles small but valid Wasm modules for tests.
package moduletest

import "encoding/binary"

const (
	sectionCustom   = 0x00
	sectionType     = 0x01
	sectionFunction = 0x03
	sectionExport   = 0x07
	sectionCode     = 0x0a

	exportKindFunc = 0x00
)

// Section is a custom section appended after the standard sections.
type Section struct {
	Name string
	Data []byte
}

// Build returns an unversioned module exporting one empty () -> () function
// per name in [exports], followed by the given custom sections.
func Build(exports []string, sections ...Section) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if n := len(exports); n > 0 {
		out = appendSection(out, sectionType, []byte{0x01, 0x60, 0x00, 0x00})

		funcs := uleb(nil, uint32(n))
		for range exports {
			funcs = append(funcs, 0x00)
		}
		out = appendSection(out, sectionFunction, funcs)

		exps := uleb(nil, uint32(n))
		for i, name := range exports {
			exps = appendName(exps, name)
			exps = append(exps, exportKindFunc)
			exps = uleb(exps, uint32(i))
		}
		out = appendSection(out, sectionExport, exps)

		code := uleb(nil, uint32(n))
		for range exports {
			// body size 2: no locals, end
			code = append(code, 0x02, 0x00, 0x0b)
		}
		out = appendSection(out, sectionCode, code)
	}

	for _, s := range sections {
		payload := appendName(nil, s.Name)
		payload = append(payload, s.Data...)
		out = appendSection(out, sectionCustom, payload)
	}
	return out
}

// Versioned prepends the 8-byte version/length header.
func Versioned(version uint32, wasm []byte) []byte {
	out := make([]byte, 8, 8+len(wasm))
	binary.BigEndian.PutUint32(out[0:4], version)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(wasm)))
	return append(out, wasm...)
}

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = uleb(out, uint32(len(payload)))
	return append(out, payload...)
}

func appendName(out []byte, name string) []byte {
	out = uleb(out, uint32(len(name)))
	return append(out, name...)
}

func uleb(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
