// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errUnknownNetwork = errors.New("unknown network")

// Network names a public chain together with its node and explorer.
type Network struct {
	Name         string `json:"name"`
	NodeEndpoint string `json:"nodeEndpoint"`
	ExplorerURL  string `json:"explorerURL"`
}

var (
	Mainnet = Network{
		Name:         "mainnet",
		NodeEndpoint: "https://grpc.mainnet.concordium.software:20000",
		ExplorerURL:  "https://ccdscan.io/",
	}
	Testnet = Network{
		Name:         "testnet",
		NodeEndpoint: "https://grpc.testnet.concordium.com:20000",
		ExplorerURL:  "https://testnet.ccdscan.io/",
	}
	Stagenet = Network{
		Name:         "stagenet",
		NodeEndpoint: "https://grpc.stagenet.concordium.com:20000",
		ExplorerURL:  "https://stagenet.ccdscan.io/",
	}

	Networks = []Network{Mainnet, Testnet, Stagenet}
)

// NetworkByName looks up one of [Networks].
func NetworkByName(name string) (Network, error) {
	for _, n := range Networks {
		if strings.EqualFold(n.Name, name) {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("%w: %q", errUnknownNetwork, name)
}

// TransactionURL links to [ref] on the network's explorer.
// It returns the empty string when the network has no explorer.
func (n Network) TransactionURL(ref TransactionRef) string {
	return n.explorerLink("transaction", "dhash", string(ref))
}

// AccountURL links to [account] on the network's explorer.
func (n Network) AccountURL(account string) string {
	return n.explorerLink("account", "daddress", account)
}

func (n Network) explorerLink(entity, key, value string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	q := url.Values{}
	q.Set("dcount", "1")
	q.Set("dentity", entity)
	q.Set(key, value)
	return n.ExplorerURL + "?" + q.Encode()
}
