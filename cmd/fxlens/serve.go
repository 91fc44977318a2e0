package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/fxlens/internal/certs"
	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve detection and annotation over HTTP",
		Long: `Serve exposes:
  POST /annotate   annotate the HTML request body (?target=CUR, ?styles=true)
  GET  /detect     list prices in ?text=
  GET  /healthz    liveness
  GET  /metrics    Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx, appCfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := initPreferences(ctx, store)
			if err != nil {
				return err
			}
			ec, err := engineConfig(appCfg)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			opts := server.Options{
				Rates:    newRateService(appCfg, store),
				Prefs:    p,
				Registry: reg,
				Engine:   ec,
			}
			if appCfg.Serve.TLS {
				mgr := certs.NewFileManager(appCfg.Serve.CertDir)
				tlsCfg, err := mgr.TLSConfig()
				if err != nil {
					return common.NewUserError("could not prepare the localhost certificate", err)
				}
				certFile, _ := mgr.Paths()
				slog.Info("Using localhost certificate", "cert", certFile)
				opts.TLS = tlsCfg
			}

			srv := server.New(opts)
			return srv.ListenAndServe(ctx, appCfg.Serve.Addr)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default: 127.0.0.1:8089)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	_ = viper.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.tls", cmd.Flags().Lookup("tls"))
	return cmd
}
