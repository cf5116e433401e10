// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/forms"
	"github.com/ava-labs/contracttools/txn"
	"github.com/ava-labs/contracttools/watcher"
)

var errNotSuccessful = errors.New("transaction did not succeed")

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

type paramFlags struct {
	kind       string
	value      string
	schemaFile string
}

func (p *paramFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&p.kind, "param-kind", "", "Input parameter type (number, string, object or array)")
	fs.StringVar(&p.value, "param", "", "Input parameter value")
	fs.StringVar(&p.schemaFile, "schema-file", "", "Schema file used instead of the embedded schema")
}

// parameter returns nil when no parameter was given.
func (p *paramFlags) parameter() (*forms.ParameterInput, error) {
	if p.kind == "" && p.value == "" {
		return nil, nil
	}
	kind, err := txn.ParseParameterKind(p.kind)
	if err != nil {
		return nil, err
	}
	return &forms.ParameterInput{Kind: kind, Value: p.value}, nil
}

func (p *paramFlags) schema() (string, error) {
	if p.schemaFile == "" {
		return "", nil
	}
	b, err := os.ReadFile(p.schemaFile)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// finish waits for the form's transaction unless [noWait], renders the state
// and turns a failed form into an error.
func (a *app) finish(ctx context.Context, session *forms.Session, kind forms.Kind, state forms.State, err error, noWait bool) error {
	if err == nil && !noWait {
		state, err = session.Wait(ctx, kind)
	}
	if renderErr := a.render(state); renderErr != nil {
		return renderErr
	}
	switch {
	case err != nil:
		return err
	case state.Outcome == watcher.FinalizedFailure || state.Outcome == watcher.Errored:
		return fmt.Errorf("%w: %s", errNotSuccessful, state.OutcomeMessage)
	default:
		return nil
	}
}

func (a *app) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <module-file>",
		Short: "Print the contracts, schema and build info of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			inspector, err := a.inspector()
			if err != nil {
				return err
			}
			info, err := inspector.Inspect(cmd.Context(), source)
			if err != nil {
				return err
			}
			return a.render(info)
		},
	}
}

func (a *app) deployCommand() *cobra.Command {
	var noWait bool
	cmd := &cobra.Command{
		Use:   "deploy <module-file>",
		Short: "Deploy a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd)
			defer cancel()

			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			deps, err := a.deps()
			if err != nil {
				return err
			}
			session := forms.NewSession(deps)
			defer session.Close()

			state, err := session.Deploy.Upload(ctx, source)
			if err != nil {
				return a.finish(ctx, session, forms.DeployKind, state, err, true)
			}
			state, err = session.Deploy.Submit(ctx, a.cfg.Sender)
			return a.finish(ctx, session, forms.DeployKind, state, err, noWait)
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the transaction is submitted")
	return cmd
}

func (a *app) initCommand() *cobra.Command {
	var (
		in         forms.InitInput
		derive     string
		moduleFile string
		params     paramFlags
		noWait     bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a contract instance from a deployed module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := interruptible(cmd)
			defer cancel()

			deps, err := a.deps()
			if err != nil {
				return err
			}
			session := forms.NewSession(deps)
			defer session.Close()

			in.Sender = a.cfg.Sender
			in.Derive = forms.DeriveMode(derive)
			if moduleFile != "" {
				source, err := os.ReadFile(moduleFile)
				if err != nil {
					return err
				}
				if _, err := session.Deploy.Upload(ctx, source); err != nil {
					return err
				}
			}
			if in.Parameter, err = params.parameter(); err != nil {
				return err
			}
			if in.UploadedSchema, err = params.schema(); err != nil {
				return err
			}
			state, err := session.Init.Submit(ctx, &in)
			return a.finish(ctx, session, forms.InitializeKind, state, err, noWait)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&in.ModuleRef, "module-ref", "", "Reference of the deployed module")
	fs.StringVar(&in.ContractName, "contract", "", "Smart contract name")
	fs.StringVar(&in.Amount, "amount", "", "Amount sent to the contract")
	fs.StringVar(&in.MaxEnergy, "max-energy", "", "Maximum contract execution energy")
	fs.StringVar(&derive, "derive", string(forms.DontDerive), "Derive contract names and schema from: none, step1 (--module-file) or chain")
	fs.StringVar(&moduleFile, "module-file", "", "Local module file used with --derive=step1")
	fs.BoolVar(&noWait, "no-wait", false, "Return once the transaction is submitted")
	params.register(fs)
	return cmd
}

func (a *app) updateCommand() *cobra.Command {
	var (
		in     forms.UpdateInput
		params paramFlags
		noWait bool
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Call an entrypoint of a contract instance in a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := interruptible(cmd)
			defer cancel()

			deps, err := a.deps()
			if err != nil {
				return err
			}
			session := forms.NewSession(deps)
			defer session.Close()

			in.Sender = a.cfg.Sender
			if in.Parameter, err = params.parameter(); err != nil {
				return err
			}
			if in.UploadedSchema, err = params.schema(); err != nil {
				return err
			}
			state, err := session.Update.Submit(ctx, &in)
			return a.finish(ctx, session, forms.UpdateKind, state, err, noWait)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&in.ContractIndex, "index", "", "Smart contract index")
	fs.StringVar(&in.ContractName, "contract", "", "Smart contract name")
	fs.StringVar(&in.Entrypoint, "entrypoint", "", "Entry point name")
	fs.StringVar(&in.Amount, "amount", "", "Amount sent to the contract")
	fs.StringVar(&in.MaxEnergy, "max-energy", "", "Maximum contract execution energy")
	fs.BoolVar(&in.DeriveFromChain, "derive", false, "Derive contract name and schema from the instance on chain")
	fs.BoolVar(&noWait, "no-wait", false, "Return once the transaction is submitted")
	params.register(fs)
	return cmd
}

func (a *app) readCommand() *cobra.Command {
	var (
		in     forms.ReadInput
		params paramFlags
	)
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Invoke an entrypoint without a transaction and print its return value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.deps()
			if err != nil {
				return err
			}
			session := forms.NewSession(deps)
			defer session.Close()

			if in.Parameter, err = params.parameter(); err != nil {
				return err
			}
			if in.UploadedSchema, err = params.schema(); err != nil {
				return err
			}
			state, err := session.Read.Submit(cmd.Context(), &in)
			return a.finish(cmd.Context(), session, forms.ReadKind, state, err, true)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&in.ContractIndex, "index", "", "Smart contract index")
	fs.StringVar(&in.ContractName, "contract", "", "Smart contract name")
	fs.StringVar(&in.Entrypoint, "entrypoint", "", "Entry point name")
	fs.StringVar(&in.Invoker, "invoker", "", "Account the invocation is made on behalf of")
	fs.BoolVar(&in.DeriveFromChain, "derive", false, "Derive contract name and schema from the instance on chain")
	params.register(fs)
	return cmd
}

func (a *app) watchCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "watch <transaction-hash>",
		Short: "Wait for a transaction to finalize",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd)
			defer cancel()

			out, err := watcher.Watch(ctx,
				chain.NewClient(a.cfg.NodeEndpoint),
				chain.TransactionKind(kind),
				chain.TransactionRef(args[0]),
				watcher.WithInterval(a.cfg.PollInterval),
			)
			if renderErr := a.render(out); renderErr != nil {
				return renderErr
			}
			if err != nil {
				return err
			}
			if out.State != watcher.FinalizedSuccess {
				return fmt.Errorf("%w: %s", errNotSuccessful, out.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(chain.DeployModule), "Expected transaction type (deployModule, initContract or update)")
	return cmd
}
