// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chaintest

import (
	"net/http"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/gorilla/rpc/v2"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/schema"
	"github.com/ava-labs/contracttools/wallet"
)

// Handler serves the chain, wallet and schema APIs from one endpoint.
func (n *Node) Handler() (http.Handler, error) {
	server := rpc.NewServer()
	codec := json.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")

	if err := server.RegisterService(&ChainService{node: n}, chain.ServiceName); err != nil {
		return nil, err
	}
	if err := server.RegisterService(&WalletService{node: n}, wallet.ServiceName); err != nil {
		return nil, err
	}
	if err := server.RegisterService(NewSchemaService(n.codec), schema.ServiceName); err != nil {
		return nil, err
	}
	return server, nil
}

// ChainService is the node API.
type ChainService struct{ node *Node }

func (s *ChainService) GetBlockItemStatus(r *http.Request, args *chain.TransactionArgs, reply *chain.BlockItemStatus) error {
	status, err := s.node.Status(r.Context(), args.TransactionHash)
	if err != nil {
		return err
	}
	*reply = *status
	return nil
}

func (s *ChainService) GetModuleSource(_ *http.Request, args *chain.ModuleSourceArgs, reply *chain.ModuleSourceReply) error {
	source, err := s.node.ModuleSource(args.ModuleRef)
	if err != nil || source == nil {
		return err
	}
	reply.Found = true
	reply.Source, err = formatting.Encode(formatting.HexNC, source)
	return err
}

func (s *ChainService) InvokeContract(_ *http.Request, args *chain.InvokeContractArgs, reply *chain.InvokeContractReply) error {
	param, err := formatting.Decode(formatting.HexNC, args.Parameter)
	if err != nil {
		return err
	}
	result, err := s.node.Invoke(&chain.InvokeRequest{
		Contract:  args.Contract,
		Method:    args.Method,
		Parameter: param,
		Invoker:   args.Invoker,
		Amount:    uint64(args.Amount),
		Energy:    uint64(args.Energy),
	})
	if err != nil {
		return err
	}
	reply.Tag = result.Tag
	reply.UsedEnergy = json.Uint64(result.UsedEnergy)
	reply.Reason = result.Reason
	if len(result.ReturnValue) > 0 {
		reply.ReturnValue, err = formatting.Encode(formatting.HexNC, result.ReturnValue)
	}
	return err
}

func (s *ChainService) GetInstanceInfo(_ *http.Request, args *chain.InstanceInfoArgs, reply *chain.InstanceInfo) error {
	info, err := s.node.Instance(args.Contract)
	if err != nil {
		return err
	}
	*reply = *info
	return nil
}

// WalletService signs with any well formed sender address.
type WalletService struct{ node *Node }

func (s *WalletService) SignAndSendTransaction(r *http.Request, args *wallet.SignAndSendArgs, reply *wallet.SignAndSendReply) error {
	payload, err := wallet.DecodePayload(args)
	if err != nil {
		return err
	}
	reply.TransactionHash, err = s.node.Submit(r.Context(), args.Sender, payload, args.Parameters)
	return err
}

// SchemaService exposes a schema.Codec over JSON-RPC.
type SchemaService struct{ codec schema.Codec }

// NewSchemaService wraps [codec].
func NewSchemaService(codec schema.Codec) *SchemaService {
	return &SchemaService{codec: codec}
}

func (s *SchemaService) SerializeInitParameter(r *http.Request, args *schema.Args, reply *schema.BytesReply) error {
	b, err := s.codec.SerializeInitParameter(r.Context(), args.Schema, args.Contract, args.Value)
	if err != nil {
		return err
	}
	reply.Bytes, err = formatting.Encode(formatting.HexNC, b)
	return err
}

func (s *SchemaService) SerializeUpdateParameter(r *http.Request, args *schema.Args, reply *schema.BytesReply) error {
	b, err := s.codec.SerializeUpdateParameter(r.Context(), args.Schema, args.Contract, args.Entrypoint, args.Value)
	if err != nil {
		return err
	}
	reply.Bytes, err = formatting.Encode(formatting.HexNC, b)
	return err
}

func (s *SchemaService) DeserializeReturnValue(r *http.Request, args *schema.Args, reply *schema.ValueReply) error {
	b, err := formatting.Decode(formatting.HexNC, args.Bytes)
	if err != nil {
		return err
	}
	reply.Value, err = s.codec.DeserializeReturnValue(r.Context(), args.Schema, args.Contract, args.Entrypoint, b)
	return err
}

func (s *SchemaService) DeserializeError(r *http.Request, args *schema.Args, reply *schema.ValueReply) error {
	b, err := formatting.Decode(formatting.HexNC, args.Bytes)
	if err != nil {
		return err
	}
	reply.Value, err = s.codec.DeserializeError(r.Context(), args.Schema, args.Contract, args.Entrypoint, b)
	return err
}

func (s *SchemaService) InitParameterTemplate(r *http.Request, args *schema.Args, reply *schema.TemplateReply) error {
	var err error
	reply.Template, err = s.codec.InitParameterTemplate(r.Context(), args.Schema, args.Contract)
	return err
}

func (s *SchemaService) ReceiveParameterTemplate(r *http.Request, args *schema.Args, reply *schema.TemplateReply) error {
	var err error
	reply.Template, err = s.codec.ReceiveParameterTemplate(r.Context(), args.Schema, args.Contract, args.Entrypoint)
	return err
}
