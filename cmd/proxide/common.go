package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/denisvmedia/proxide/cert"
	"github.com/denisvmedia/proxide/internal/upstream"
)

// newLogger mirrors the teacher's cmd/go-mitmproxy/main.go slog setup:
// text handler to stderr (stdout is reserved for --json output), debug
// adds source locations.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	addSource := false
	if debug {
		level = slog.LevelDebug
		addSource = true
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	}))
}

func loadCA(certDir, certPath, keyPath string, validityDays int) (cert.CA, error) {
	if certPath != "" || keyPath != "" {
		return cert.LoadSelfSignCA(certPath, keyPath)
	}
	var opts []cert.Option
	if validityDays > 0 {
		opts = append(opts, cert.WithValidityDays(validityDays))
	}
	return cert.NewSelfSignCA(certDir, opts...)
}

// staticUpstreamConfig adapts two plain flags to upstream.Config.
type staticUpstreamConfig struct {
	upstream string
	insecure bool
}

func (c staticUpstreamConfig) Upstream() string         { return c.upstream }
func (c staticUpstreamConfig) InsecureSkipVerify() bool { return c.insecure }

func newUpstreamManager(upstreamProxy string, insecure bool) *upstream.Manager {
	return upstream.NewManager(staticUpstreamConfig{upstream: upstreamProxy, insecure: insecure})
}

// normalizeProtoPaths trims whitespace from each --proto-path value, drops
// anything left empty, and removes duplicates, using lo.Map/lo.Filter/
// lo.Uniq rather than a hand-rolled loop nest.
func normalizeProtoPaths(raw []string) []string {
	trimmed := lo.Map(raw, func(p string, _ int) string { return strings.TrimSpace(p) })
	nonEmpty := lo.Filter(trimmed, func(p string, _ int) bool { return p != "" })
	return lo.Uniq(nonEmpty)
}
