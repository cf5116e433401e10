// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/contracttools/chain"
	"github.com/ava-labs/contracttools/chain/chaintest"
	"github.com/ava-labs/contracttools/module"
	"github.com/ava-labs/contracttools/toolchain"
	"github.com/ava-labs/contracttools/watcher"
)

const (
	configFileKey             = "config"
	networkKey                = "network"
	nodeEndpointKey           = "node-endpoint"
	walletEndpointKey         = "wallet-endpoint"
	schemaEndpointKey         = "schema-endpoint"
	senderKey                 = "sender"
	pollIntervalKey           = "poll-interval"
	httpHostKey               = "http-host"
	httpPortKey               = "http-port"
	logLevelKey               = "log-level"
	logFormatKey              = "log-format"
	outputKey                 = "output"
	introspectionCacheSizeKey = "introspection-cache-size"
	devnetFinalizeAfterKey    = "devnet-finalize-after"

	envPrefix = "contracttools"
)

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("contracttools", flag.ContinueOnError)

	fs.String(configFileKey, "", "Config file (yaml, json or toml)")
	fs.String(networkKey, chain.Testnet.Name, "Network used for explorer links and the default node endpoint")
	fs.String(nodeEndpointKey, "", "JSON-RPC endpoint of the node (defaults to the network's)")
	fs.String(walletEndpointKey, "", "JSON-RPC endpoint of the wallet (defaults to the node endpoint)")
	fs.String(schemaEndpointKey, "", "JSON-RPC endpoint of the schema codec (defaults to the node endpoint)")
	fs.String(senderKey, "", "Account address signing transactions")
	fs.Duration(pollIntervalKey, watcher.DefaultInterval, "Interval between transaction status queries")
	fs.String(httpHostKey, "127.0.0.1", "Address the serve and devnet commands listen on")
	fs.Uint(httpPortKey, 9650, "Port the serve and devnet commands listen on")
	fs.String(logLevelKey, "info", "Log level (crit, error, warn, info, debug)")
	fs.String(logFormatKey, "terminal", "Log format (terminal or json)")
	fs.String(outputKey, "json", "Output format (json or yaml)")
	fs.Int(introspectionCacheSizeKey, module.DefaultCacheSize, "Number of inspected modules to cache")
	fs.Int(devnetFinalizeAfterKey, chaintest.DefaultFinalizeAfter, "Status queries after which the devnet reports a transaction finalized")

	fs.String(toolchain.CustomExecutableKey, "", "Custom cargo-concordium executable")
	fs.String(toolchain.CustomJSGenExecutableKey, "", "Custom ccd-js-gen executable")
	fs.String(toolchain.BundledDirKey, "", "Directory holding the bundled executables")

	return fs
}

// addPersistentFlags installs the shared flags, plus the list flags the go
// flag package cannot express.
func addPersistentFlags(flags *pflag.FlagSet) {
	flags.AddGoFlagSet(buildFlagSet())
	flags.StringSlice(toolchain.AdditionalBuildArgsKey, nil, "Extra arguments for cargo concordium build")
	flags.StringSlice(toolchain.AdditionalTestArgsKey, nil, "Extra arguments for cargo concordium test")
	flags.StringSlice(toolchain.AdditionalGenJSArgsKey, nil, "Extra arguments for ccd-js-gen")
}

// getViper binds [flags] and the CONTRACTTOOLS_* environment, then reads the
// config file if one is set.
func getViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	if file := v.GetString(configFileKey); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %v", toolchain.ErrConfig, err)
		}
	}
	return v, nil
}

// Config is the resolved configuration of one invocation.
type Config struct {
	Network        chain.Network
	NodeEndpoint   string
	WalletEndpoint string
	SchemaEndpoint string
	Sender         string
	PollInterval   time.Duration

	HTTPHost string
	HTTPPort uint

	LogLevel  string
	LogFormat string
	Output    string

	IntrospectionCacheSize int
	DevnetFinalizeAfter    int

	Toolchain toolchain.Config
}

func getConfig(v *viper.Viper) (*Config, error) {
	network, err := chain.NetworkByName(v.GetString(networkKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", toolchain.ErrConfig, err)
	}
	cfg := &Config{
		Network:                network,
		NodeEndpoint:           v.GetString(nodeEndpointKey),
		WalletEndpoint:         v.GetString(walletEndpointKey),
		SchemaEndpoint:         v.GetString(schemaEndpointKey),
		Sender:                 v.GetString(senderKey),
		PollInterval:           v.GetDuration(pollIntervalKey),
		HTTPHost:               v.GetString(httpHostKey),
		HTTPPort:               v.GetUint(httpPortKey),
		LogLevel:               v.GetString(logLevelKey),
		LogFormat:              v.GetString(logFormatKey),
		Output:                 v.GetString(outputKey),
		IntrospectionCacheSize: v.GetInt(introspectionCacheSizeKey),
		DevnetFinalizeAfter:    v.GetInt(devnetFinalizeAfterKey),
		Toolchain: toolchain.Config{
			CustomExecutable:      v.GetString(toolchain.CustomExecutableKey),
			CustomJSGenExecutable: v.GetString(toolchain.CustomJSGenExecutableKey),
			BundledDir:            v.GetString(toolchain.BundledDirKey),
			AdditionalBuildArgs:   v.GetStringSlice(toolchain.AdditionalBuildArgsKey),
			AdditionalTestArgs:    v.GetStringSlice(toolchain.AdditionalTestArgsKey),
			AdditionalGenJSArgs:   v.GetStringSlice(toolchain.AdditionalGenJSArgsKey),
		},
	}
	if cfg.NodeEndpoint == "" {
		cfg.NodeEndpoint = network.NodeEndpoint
	}
	if cfg.WalletEndpoint == "" {
		cfg.WalletEndpoint = cfg.NodeEndpoint
	}
	if cfg.SchemaEndpoint == "" {
		cfg.SchemaEndpoint = cfg.NodeEndpoint
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: %s must be positive", toolchain.ErrConfig, pollIntervalKey)
	}
	switch cfg.Output {
	case outputJSON, outputYAML:
	default:
		return nil, fmt.Errorf("%w: unknown output format %q", toolchain.ErrConfig, cfg.Output)
	}
	return cfg, nil
}
