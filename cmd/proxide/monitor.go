package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/denisvmedia/proxide/internal/server"
	"github.com/denisvmedia/proxide/internal/session"
)

func newMonitorCmd() *cobra.Command {
	var (
		listen            string
		target            string
		caCertPath        string
		caKeyPath         string
		caDir             string
		caValidityDays    int
		insecureUpstream  bool
		upstreamProxy     string
		debug             bool
		callstackPermits  int
		protoPaths        []string
		ignoreHosts       []string
		allowHosts        []string
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the proxy and watch traffic live",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(debug)

			ca, err := loadCA(caDir, caCertPath, caKeyPath, caValidityDays)
			if err != nil {
				return err
			}

			if paths := normalizeProtoPaths(protoPaths); len(paths) > 0 {
				log.Debug("proto import paths configured", "paths", paths)
			}

			bus := session.NewBus(256)
			model := session.New()
			bus.Register(session.SinkFunc(func(e session.Event) { model.Apply(e) }))
			go bus.Run()

			if jsonOutput {
				sink, err := newWebSocketSink(cmd.Context())
				if err != nil {
					log.Warn("live JSON sink unavailable", "error", err)
				} else {
					bus.Register(sink)
				}
			}

			um := newUpstreamManager(upstreamProxy, insecureUpstream)
			srv := server.New(server.Config{
				ListenAddr:         listen,
				AuthorityOverride:  target,
				InsecureSkipVerify: insecureUpstream,
				CallstackPermits:   callstackPermits,
				IgnoreHosts:        ignoreHosts,
				AllowHosts:         allowHosts,
			}, ca, bus, um, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("proxide monitor listening", "addr", listen)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:8443", "address to listen on")
	cmd.Flags().StringVarP(&target, "target", "t", "", "rewrite :authority to this host:port before forwarding")
	cmd.Flags().StringVar(&caCertPath, "ca-cert", "", "path to an existing CA certificate (requires --ca-key)")
	cmd.Flags().StringVar(&caKeyPath, "ca-key", "", "path to an existing CA private key (requires --ca-cert)")
	cmd.Flags().StringVar(&caDir, "ca-dir", "", "directory to load/persist a generated CA (default: current directory)")
	cmd.Flags().IntVar(&caValidityDays, "ca-validity-days", 0, "validity period in days for a newly generated CA (0 = package default)")
	cmd.Flags().BoolVar(&insecureUpstream, "insecure-skip-verify", false, "skip TLS certificate verification on the upstream leg")
	cmd.Flags().StringVar(&upstreamProxy, "upstream-proxy", "", "forward upstream connections through this proxy URL")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().IntVar(&callstackPermits, "callstack-permits", 2, "max concurrent client call-stack captures (0 disables)")
	cmd.Flags().StringSliceVar(&protoPaths, "proto-path", nil, "directory to search for .proto schema files (repeatable)")
	cmd.Flags().StringSliceVar(&ignoreHosts, "ignore-host", nil, "host (optionally *.-prefixed, optionally :port-suffixed) to exclude from interception (repeatable)")
	cmd.Flags().StringSliceVar(&allowHosts, "allow-host", nil, "if set, only these hosts are intercepted; everything else passes through raw (repeatable)")

	return cmd
}
