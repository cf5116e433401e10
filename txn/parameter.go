// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParameterKind is the JSON shape the user declared for an input parameter.
type ParameterKind uint8

const (
	KindNumber ParameterKind = iota + 1
	KindString
	KindObject
	KindArray
)

var kindNames = map[ParameterKind]string{
	KindNumber: "number",
	KindString: "string",
	KindObject: "object",
	KindArray:  "array",
}

func (k ParameterKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ParameterKind(%d)", uint8(k))
}

// ParseParameterKind maps "number", "string", "object" or "array" to its kind.
func ParseParameterKind(s string) (ParameterKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: input parameter type %q does not exist", ErrValidation, s)
}

func (k ParameterKind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: unknown input parameter type %d", ErrValidation, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *ParameterKind) UnmarshalText(text []byte) error {
	parsed, err := ParseParameterKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseParameter converts the text a user typed into the JSON value the
// schema codec expects.
func ParseParameter(kind ParameterKind, raw string) (json.RawMessage, error) {
	switch kind {
	case KindNumber:
		return parseNumber(raw)
	case KindString:
		return json.Marshal(raw)
	case KindObject:
		var obj map[string]json.RawMessage
		return compactAs(raw, &obj)
	case KindArray:
		var arr []json.RawMessage
		return compactAs(raw, &arr)
	default:
		return nil, fmt.Errorf("%w: input parameter type %s does not exist", ErrValidation, kind)
	}
}

func parseNumber(raw string) (json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrValidation, raw)
	}
	n, ok := v.(json.Number)
	if !ok || dec.More() {
		return nil, fmt.Errorf("%w: %q is not a number", ErrValidation, raw)
	}
	return json.RawMessage(n.String()), nil
}

func compactAs(raw string, dst interface{}) (json.RawMessage, error) {
	if strings.TrimSpace(raw) == "null" {
		return nil, fmt.Errorf("%w: input parameter is null", ErrValidation)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON input parameter: %v", ErrValidation, err)
	}
	buf := new(bytes.Buffer)
	if err := json.Compact(buf, []byte(raw)); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON input parameter: %v", ErrValidation, err)
	}
	return buf.Bytes(), nil
}
