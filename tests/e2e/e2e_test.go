// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// e2e implements the e2e tests.
package e2e_test

import (
	"context"
	"flag"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	ginkgo "github.com/onsi/ginkgo/v2"
	"github.com/onsi/ginkgo/v2/formatter"
	"github.com/onsi/gomega"
	"sigs.k8s.io/yaml"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/chain/chaintest"
	"github.com/ava-labs/contracttools/client"
	"github.com/ava-labs/contracttools/forms"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/schema"
	"github.com/ava-labs/contracttools/service"
	"github.com/ava-labs/contracttools/txn"
	"github.com/ava-labs/contracttools/wallet"
	"github.com/ava-labs/contracttools/watcher"
)

func TestE2e(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "contracttools e2e test suites")
}

var (
	requestTimeout time.Duration
	pollInterval   time.Duration

	nodeEndpoint string
	outputPath   string
)

func init() {
	flag.DurationVar(
		&requestTimeout,
		"request-timeout",
		2*time.Minute,
		"timeout for transaction issuance and finalization",
	)
	flag.DurationVar(
		&pollInterval,
		"poll-interval",
		10*time.Millisecond,
		"interval between transaction status queries",
	)
	flag.StringVar(
		&nodeEndpoint,
		"node-endpoint",
		"",
		"JSON-RPC endpoint of a running devnet, an in-process node is started when empty",
	)
	flag.StringVar(
		&outputPath,
		"output-path",
		"",
		"output YAML path to write the endpoints under test",
	)
}

var (
	node       *chaintest.Node
	nodeServer *httptest.Server

	session       *forms.Session
	serviceServer *httptest.Server
	cli           client.Client

	sender = chain.AccountAddress{0xe2}.String()
)

var _ = ginkgo.BeforeSuite(func() {
	if nodeEndpoint == "" {
		node = chaintest.NewNode(chaintest.Config{})
		handler, err := node.Handler()
		gomega.Expect(err).Should(gomega.BeNil())
		nodeServer = httptest.NewServer(handler)
		nodeEndpoint = nodeServer.URL
		outf("{{green}}started in-process devnet:{{/}} %s\n", nodeEndpoint)
	}

	session = forms.NewSession(forms.Deps{
		Chain:        chain.NewClient(nodeEndpoint),
		Wallet:       wallet.NewClient(nodeEndpoint),
		Codec:        schema.NewRemoteCodec(nodeEndpoint),
		Inspector:    module.NewIntrospector(),
		Network:      chain.Testnet,
		WatchOptions: []watcher.Option{watcher.WithInterval(pollInterval)},
	})
	handler, err := service.NewHandler(service.New(session, nil), nil)
	gomega.Expect(err).Should(gomega.BeNil())
	serviceServer = httptest.NewServer(handler)
	cli = client.New(serviceServer.URL)
	outf("{{blue}}contracttools RPC:{{/}} %q\n", serviceServer.URL)

	if outputPath != "" {
		ei := endpointInfo{Node: nodeEndpoint, Service: serviceServer.URL, PID: os.Getpid()}
		gomega.Expect(ei.Save(outputPath)).Should(gomega.BeNil())
	}
})

var _ = ginkgo.AfterSuite(func() {
	outf("{{red}}shutting down servers{{/}}\n")
	session.Close()
	serviceServer.Close()
	if node != nil {
		nodeServer.Close()
		gomega.Expect(node.Close()).Should(gomega.BeNil())
	}
})

// settle waits for the form's transaction to leave the watching state.
func settle(form forms.Kind) *forms.State {
	var state *forms.State
	gomega.Eventually(func() bool {
		var err error
		state, err = cli.FormState(context.Background(), form)
		gomega.Ω(err).Should(gomega.BeNil())
		return state.Outcome.Terminal()
	}, requestTimeout, pollInterval).Should(gomega.BeTrue())
	return state
}

var _ = ginkgo.Describe("[ContractLifecycle]", ginkgo.Ordered, func() {
	// salted so reruns against a long-lived devnet deploy a fresh module
	source := chaintest.CounterModule([]byte(time.Now().String())...)
	ref := module.RefOf(source).String()
	var index uint64

	ginkgo.It("inspects the module", func() {
		state, err := cli.InspectModule(context.Background(), source)
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(state.Error).Should(gomega.BeEmpty())
		gomega.Ω(state.ModuleRef).Should(gomega.Equal(ref))
		gomega.Ω(state.ContractNames).Should(gomega.Equal([]string{"counter"}))
		gomega.Ω(state.EmbeddedSchema).ShouldNot(gomega.BeEmpty())
	})

	ginkgo.It("deploys the module", func() {
		state, err := cli.Deploy(context.Background(), sender)
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(state.Outcome).Should(gomega.Equal(watcher.Watching))

		state = settle(forms.DeployKind)
		gomega.Ω(state.Outcome).Should(gomega.Equal(watcher.FinalizedSuccess))
		gomega.Ω(state.ModuleRef).Should(gomega.Equal(ref))
	})

	ginkgo.It("initializes a counter", func() {
		state, err := cli.Initialize(context.Background(), &forms.InitInput{
			Sender:       sender,
			ModuleRef:    ref,
			ContractName: "counter",
			Derive:       forms.DeriveFromChain,
			Parameter:    &forms.ParameterInput{Kind: txn.KindObject, Value: `{"count":0}`},
		})
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(state.Error).Should(gomega.BeEmpty())

		state = settle(forms.InitializeKind)
		gomega.Ω(state.Outcome).Should(gomega.Equal(watcher.FinalizedSuccess))
		gomega.Ω(state.ContractIndex).ShouldNot(gomega.BeNil())
		index = *state.ContractIndex
	})

	ginkgo.It("increments the counter", func() {
		state, err := cli.Update(context.Background(), &forms.UpdateInput{
			Sender:          sender,
			ContractIndex:   fmt.Sprint(index),
			Entrypoint:      "increment",
			DeriveFromChain: true,
			Parameter:       &forms.ParameterInput{Kind: txn.KindNumber, Value: "42"},
		})
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(state.Error).Should(gomega.BeEmpty())

		state = settle(forms.UpdateKind)
		gomega.Ω(state.Outcome).Should(gomega.Equal(watcher.FinalizedSuccess))
	})

	ginkgo.It("reads the counter", func() {
		state, err := cli.Read(context.Background(), &forms.ReadInput{
			ContractIndex:   fmt.Sprint(index),
			Entrypoint:      "view",
			DeriveFromChain: true,
		})
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(state.Error).Should(gomega.BeEmpty())
		gomega.Ω(string(state.ReturnValue)).Should(gomega.Equal("42"))
	})

	ginkgo.It("reports a second deploy as rejected", func() {
		state, err := cli.InspectModule(context.Background(), source)
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(state.AlreadyDeployed).Should(gomega.BeTrue())
		gomega.Ω(state.Warnings).Should(gomega.ContainElement(forms.WarnAlreadyDeployed))

		_, err = cli.Deploy(context.Background(), sender)
		gomega.Ω(err).Should(gomega.BeNil())
		state = settle(forms.DeployKind)
		gomega.Ω(state.Outcome).Should(gomega.Equal(watcher.FinalizedFailure))
		gomega.Ω(state.OutcomeMessage).Should(gomega.ContainSubstring("ModuleHashAlreadyExists"))
	})
})

// Outputs to stdout.
//
// e.g.,
//
//	Out("{{green}}{{bold}}hi there %q{{/}}", "aa")
//	Out("{{magenta}}{{bold}}hi therea{{/}} {{cyan}}{{underline}}b{{/}}")
//
// ref.
// https://github.com/onsi/ginkgo/blob/v2.0.0/formatter/formatter.go#L52-L73
func outf(format string, args ...interface{}) {
	s := formatter.F(format, args...)
	fmt.Fprint(formatter.ColorableStdOut, s)
}

// endpointInfo represents the endpoints under test.
type endpointInfo struct {
	Node    string `json:"node"`
	Service string `json:"service"`
	PID     int    `json:"pid"`
}

const fsModeWrite = 0o600

func (ei endpointInfo) Save(p string) error {
	ob, err := yaml.Marshal(ei)
	if err != nil {
		return err
	}
	return os.WriteFile(p, ob, fsModeWrite)
}
