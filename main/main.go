// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/forms"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/schema"
	"github.com/ava-labs/contracttools/wallet"
	"github.com/ava-labs/contracttools/watcher"
)

const (
	Name    = "contracttools"
	Version = "0.1.0"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", Name, err)
		os.Exit(1)
	}
}

// app carries the configuration resolved before a command runs.
type app struct {
	cfg    *Config
	stdout io.Writer
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	a := &app{stdout: stdout}
	root := &cobra.Command{
		Use:           Name,
		Short:         "Deploy, initialize, update and read smart contracts",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := getViper(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := getConfig(v)
			if err != nil {
				return err
			}
			if err := setupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	addPersistentFlags(root.PersistentFlags())

	root.AddCommand(
		a.inspectCommand(),
		a.deployCommand(),
		a.initCommand(),
		a.updateCommand(),
		a.readCommand(),
		a.watchCommand(),
		a.serveCommand(),
		a.devnetCommand(),
		a.toolCommand(),
	)
	return root
}

func (a *app) render(v interface{}) error {
	return render(a.stdout, a.cfg.Output, v)
}

func (a *app) inspector() (module.Inspector, error) {
	return module.NewCachingInspector(module.NewIntrospector(), a.cfg.IntrospectionCacheSize)
}

// deps connects the forms to the configured endpoints.
func (a *app) deps(opts ...watcher.Option) (forms.Deps, error) {
	inspector, err := a.inspector()
	if err != nil {
		return forms.Deps{}, err
	}
	return forms.Deps{
		Chain:        chain.NewClient(a.cfg.NodeEndpoint),
		Wallet:       wallet.NewClient(a.cfg.WalletEndpoint),
		Codec:        schema.NewRemoteCodec(a.cfg.SchemaEndpoint),
		Inspector:    inspector,
		Network:      a.cfg.Network,
		WatchOptions: append([]watcher.Option{watcher.WithInterval(a.cfg.PollInterval)}, opts...),
	}, nil
}
