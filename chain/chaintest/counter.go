// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chaintest

import (
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/module/moduletest"
)

// CounterSchema describes the counter contract of [CounterModule].
var CounterSchema = &Schema{Contracts: map[string]*ContractSchema{
	"counter": {
		Init: &FunctionSchema{Parameter: `{"count":"<UInt64>"}`},
		Entrypoints: map[string]*FunctionSchema{
			"increment": {Parameter: `"<UInt64>"`, Error: `"<Error>"`},
			"view":      {ReturnValue: `{"count":"<UInt64>"}`, Error: `"<Error>"`},
		},
	},
}}

// CounterModule returns a module with a "counter" contract exposing
// "increment" and "view", carrying [CounterSchema] as its embedded schema.
// Distinct [salt] values produce distinct module references.
func CounterModule(salt ...byte) []byte {
	sections := []moduletest.Section{
		{Name: module.SchemaSection, Data: CounterSchema.Bytes()},
	}
	if len(salt) > 0 {
		sections = append(sections, moduletest.Section{Name: "salt", Data: salt})
	}
	return moduletest.Build([]string{"init_counter", "counter.increment", "counter.view"}, sections...)
}
