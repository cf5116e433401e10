// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/contracttools/forms"
	"github.com/ava-labs/contracttools/service"
	"github.com/ava-labs/contracttools/toolchain"
)

// Client defines contracttools client operations.
type Client interface {
	// InspectModule uploads a module into the deploy form
	InspectModule(ctx context.Context, source []byte) (*forms.State, error)

	// Deploy submits the uploaded module
	Deploy(ctx context.Context, sender string) (*forms.State, error)

	Initialize(ctx context.Context, in *forms.InitInput) (*forms.State, error)
	// DeriveInitialize fills the initialize form without submitting
	DeriveInitialize(ctx context.Context, in *forms.InitInput) (*forms.State, error)
	Update(ctx context.Context, in *forms.UpdateInput) (*forms.State, error)
	Read(ctx context.Context, in *forms.ReadInput) (*forms.State, error)

	// FormState fetches the current state of a form
	FormState(ctx context.Context, form forms.Kind) (*forms.State, error)

	// Cancel stops watching the form's transaction
	Cancel(ctx context.Context, form forms.Kind) (*forms.State, error)

	ToolVersion(ctx context.Context, executable toolchain.Executable) (string, error)
}

// New creates a new client object.
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (cli *client) InspectModule(ctx context.Context, source []byte) (*forms.State, error) {
	encoded, err := formatting.Encode(formatting.HexNC, source)
	if err != nil {
		return nil, err
	}
	return cli.form(ctx, "inspectModule", &service.InspectModuleArgs{Source: encoded})
}

func (cli *client) Deploy(ctx context.Context, sender string) (*forms.State, error) {
	return cli.form(ctx, "deploy", &service.DeployArgs{Sender: sender})
}

func (cli *client) Initialize(ctx context.Context, in *forms.InitInput) (*forms.State, error) {
	return cli.form(ctx, "initialize", in)
}

func (cli *client) DeriveInitialize(ctx context.Context, in *forms.InitInput) (*forms.State, error) {
	return cli.form(ctx, "deriveInitialize", in)
}

func (cli *client) Update(ctx context.Context, in *forms.UpdateInput) (*forms.State, error) {
	return cli.form(ctx, "update", in)
}

func (cli *client) Read(ctx context.Context, in *forms.ReadInput) (*forms.State, error) {
	return cli.form(ctx, "read", in)
}

func (cli *client) FormState(ctx context.Context, form forms.Kind) (*forms.State, error) {
	return cli.form(ctx, "getFormState", &service.FormArgs{Form: form})
}

func (cli *client) Cancel(ctx context.Context, form forms.Kind) (*forms.State, error) {
	return cli.form(ctx, "cancel", &service.FormArgs{Form: form})
}

func (cli *client) ToolVersion(ctx context.Context, executable toolchain.Executable) (string, error) {
	resp := new(service.ToolVersionReply)
	err := cli.req.SendRequest(ctx,
		service.ServiceName+".toolVersion",
		&service.ToolVersionArgs{Executable: executable},
		resp,
	)
	if err != nil {
		return "", err
	}
	return resp.Version, nil
}

func (cli *client) form(ctx context.Context, method string, args interface{}) (*forms.State, error) {
	resp := new(forms.State)
	err := cli.req.SendRequest(ctx,
		service.ServiceName+"."+method,
		args,
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
