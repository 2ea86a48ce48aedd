package main

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal/log"
	"github.com/0xRadioAc7iv/go-kvs/internal/server"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

const shutdownGracePeriod = 5 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var (
		host        string
		port        int
		metricsPort int
	)

	c := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the store over TCP",
		Example: "kvs serve --dir ./data --port 9999 --metrics-port 9100",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := flags.settings(cmd, "info", true)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				settings.ListenHost = host
			}
			if cmd.Flags().Changed("port") {
				settings.ListenPort = port
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			opts := append(settings.StoreOptions(), core.WithRegisterer(reg))
			s, err := core.Open(flags.dir, opts...)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if metricsPort > 0 {
				srv := serveMetrics(reg, net.JoinHostPort(settings.ListenHost, strconv.Itoa(metricsPort)))
				defer func() {
					shutdownCtx, done := context.WithTimeout(context.Background(), shutdownGracePeriod)
					defer done()
					srv.Shutdown(shutdownCtx)
				}()
			}

			go func() {
				utils.ListenForProcessInterruptOrKill(ctx)
				cancel()
			}()

			addr := net.JoinHostPort(settings.ListenHost, strconv.Itoa(settings.ListenPort))
			if err := server.New(s).ListenAndServe(ctx, addr); err != nil {
				return errors.Wrap(err, "serve")
			}
			return nil
		},
	}

	c.Flags().StringVar(&host, "host", "", "listen host (default from settings, else 127.0.0.1)")
	c.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from settings, else 9999)")
	c.Flags().IntVar(&metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")

	return c
}

func serveMetrics(reg *prometheus.Registry, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info("serving metrics on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server: %v", err)
		}
	}()

	return srv
}
