package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/server"
	"github.com/desertthunder/studyflow/internal/shared"
)

// Serve runs the in-memory API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if addr := cmd.String("addr"); addr != "" {
		host, port, err := splitAddr(addr)
		if err != nil {
			return err
		}
		cfg.Host, cfg.Port = host, port
	}

	srv, err := server.New(cfg, r.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("StudyFlow API listening on http://%s%s\n", cfg.Addr(), srv.Prefix())
	r.writePlain("Demo account: %s / %s\n", server.DemoEmail, server.DemoPassword)
	return srv.ListenAndServe(ctx)
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: invalid port %q", shared.ErrInvalidInput, portStr)
	}
	return host, port, nil
}
