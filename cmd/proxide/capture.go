package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/denisvmedia/proxide/internal/capture"
	"github.com/denisvmedia/proxide/internal/server"
	"github.com/denisvmedia/proxide/internal/session"
)

func newCaptureCmd() *cobra.Command {
	var (
		listen           string
		target           string
		output           string
		caCertPath       string
		caKeyPath        string
		caDir            string
		caValidityDays   int
		insecureUpstream bool
		upstreamProxy    string
		debug            bool
		protoPaths       []string
		ignoreHosts      []string
		allowHosts       []string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Run the proxy and record every event to a capture file until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(debug)

			ca, err := loadCA(caDir, caCertPath, caKeyPath, caValidityDays)
			if err != nil {
				return err
			}

			if paths := normalizeProtoPaths(protoPaths); len(paths) > 0 {
				log.Debug("proto import paths configured", "paths", paths)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}

			cw, err := capture.NewWriter(f, capture.KindCapture, log)
			if err != nil {
				f.Close()
				return err
			}

			bus := session.NewBus(256)
			events := make(chan session.Event, 256)
			bus.Register(session.SinkFunc(func(e session.Event) {
				select {
				case events <- e:
				default:
					log.Warn("capture channel full, dropping event")
				}
			}))
			go bus.Run()

			um := newUpstreamManager(upstreamProxy, insecureUpstream)
			srv := server.New(server.Config{
				ListenAddr:         listen,
				AuthorityOverride:  target,
				InsecureSkipVerify: insecureUpstream,
				IgnoreHosts:        ignoreHosts,
				AllowHosts:         allowHosts,
			}, ca, bus, um, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := srv.ListenAndServe(ctx); err != nil {
					log.Warn("proxy stopped", "error", err)
				}
			}()

			log.Info("proxide capture listening", "addr", listen, "output", output)
			err = capture.RunCapture(ctx, events, cw)
			closeErr := cw.Close()
			if err == nil {
				err = closeErr
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:8443", "address to listen on")
	cmd.Flags().StringVarP(&target, "target", "t", "", "rewrite :authority to this host:port before forwarding")
	cmd.Flags().StringVarP(&output, "output", "o", "capture.proxide", "capture file to write")
	cmd.Flags().StringVar(&caCertPath, "ca-cert", "", "path to an existing CA certificate (requires --ca-key)")
	cmd.Flags().StringVar(&caKeyPath, "ca-key", "", "path to an existing CA private key (requires --ca-cert)")
	cmd.Flags().StringVar(&caDir, "ca-dir", "", "directory to load/persist a generated CA (default: current directory)")
	cmd.Flags().IntVar(&caValidityDays, "ca-validity-days", 0, "validity period in days for a newly generated CA (0 = package default)")
	cmd.Flags().BoolVar(&insecureUpstream, "insecure-skip-verify", false, "skip TLS certificate verification on the upstream leg")
	cmd.Flags().StringVar(&upstreamProxy, "upstream-proxy", "", "forward upstream connections through this proxy URL")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringSliceVar(&protoPaths, "proto-path", nil, "directory to search for .proto schema files (repeatable)")
	cmd.Flags().StringSliceVar(&ignoreHosts, "ignore-host", nil, "host (optionally *.-prefixed, optionally :port-suffixed) to exclude from interception (repeatable)")
	cmd.Flags().StringSliceVar(&allowHosts, "allow-host", nil, "if set, only these hosts are intercepted; everything else passes through raw (repeatable)")

	return cmd
}
