// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ava-labs/contracttools/toolchain"
)

func (a *app) toolCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Run cargo-concordium and ccd-js-gen",
	}

	var dryRun bool
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print the task instead of running it")

	run := func(cmd *cobra.Command, task *toolchain.Task, err error) error {
		if err != nil {
			return err
		}
		if dryRun {
			return a.render(task)
		}
		return toolchain.New(a.cfg.Toolchain).Run(cmd.Context(), task, os.Stdout, os.Stderr)
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the versions of the external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tc := toolchain.New(a.cfg.Toolchain)
			versions := map[toolchain.Executable]string{}
			for _, name := range []toolchain.Executable{toolchain.CargoConcordium, toolchain.CCDJSGen} {
				v, err := tc.Version(cmd.Context(), name)
				if err != nil {
					return err
				}
				versions[name] = v
			}
			return a.render(versions)
		},
	}

	build := &cobra.Command{
		Use:   "build [dir]",
		Short: "Build the smart contract in dir",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := toolchain.New(a.cfg.Toolchain).BuildTask(dirArg(args))
			return run(cmd, task, err)
		},
	}

	test := &cobra.Command{
		Use:   "test [dir]",
		Short: "Run the smart contract tests in dir",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := toolchain.New(a.cfg.Toolchain).TestTask(dirArg(args))
			return run(cmd, task, err)
		},
	}

	var outDir string
	generate := &cobra.Command{
		Use:   "generate-clients <module-file>",
		Short: "Generate TypeScript/JavaScript clients for a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				return fmt.Errorf("%w: set --out-dir", toolchain.ErrConfig)
			}
			task, err := toolchain.New(a.cfg.Toolchain).GenerateClientsTask(".", args[0], outDir)
			return run(cmd, task, err)
		},
	}
	generate.Flags().StringVar(&outDir, "out-dir", "", "Directory the clients are written to")

	cmd.AddCommand(version, build, test, generate)
	return cmd
}

func dirArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
