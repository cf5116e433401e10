// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/contracttools/chain/chaintest"
	"github.com/ava-labs/contracttools/forms"
	"github.com/ava-labs/contracttools/service"
	"github.com/ava-labs/contracttools/toolchain"
	"github.com/ava-labs/contracttools/watcher"
)

const (
	rpcPath     = "/ext/" + service.ServiceName
	metricsPath = "/ext/metrics"

	shutdownTimeout = 5 * time.Second
)

func (a *app) addr() string {
	return net.JoinHostPort(a.cfg.HTTPHost, strconv.FormatUint(uint64(a.cfg.HTTPPort), 10))
}

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the toolkit JSON-RPC API and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := interruptible(cmd)
			defer cancel()

			registry := prometheus.NewRegistry()
			if err := registry.Register(collectors.NewGoCollector()); err != nil {
				return err
			}
			watchMetrics, err := watcher.NewMetrics(Name, registry)
			if err != nil {
				return err
			}
			rpcMetrics, err := service.NewMetrics(Name, registry)
			if err != nil {
				return err
			}

			deps, err := a.deps(watcher.WithMetrics(watchMetrics))
			if err != nil {
				return err
			}
			session := forms.NewSession(deps)
			defer session.Close()

			handler, err := service.NewHandler(service.New(session, toolchain.New(a.cfg.Toolchain)), rpcMetrics)
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle(rpcPath, handler)
			mux.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			return listenAndServe(ctx, a.addr(), mux)
		},
	}
}

func (a *app) devnetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devnet",
		Short: "Run an in-memory development node serving the chain, wallet and schema APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := interruptible(cmd)
			defer cancel()

			inspector, err := a.inspector()
			if err != nil {
				return err
			}
			node := chaintest.NewNode(chaintest.Config{
				FinalizeAfter: a.cfg.DevnetFinalizeAfter,
				Inspector:     inspector,
			})
			defer node.Close()

			handler, err := node.Handler()
			if err != nil {
				return err
			}
			return listenAndServe(ctx, a.addr(), handler)
		},
	}
}

// listenAndServe serves [handler] until [ctx] is done.
func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server stopped", "addr", addr)
	return nil
}
