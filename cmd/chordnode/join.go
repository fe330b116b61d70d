package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join [peer-ip] [peer-port]",
	Short: "Join an existing ring through a known peer",
	Long: "Join an existing ring. With no arguments the configured bootstrap " +
		"source is used to discover a peer; with two arguments, that peer is " +
		"used directly.",
	Args: cobra.MatchAll(cobra.MaximumNArgs(2), func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return fmt.Errorf("join takes either zero or two arguments (peer-ip, peer-port)")
		}
		return nil
	}),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := buildApp(ctx)
		if err != nil {
			fatal(nil, "failed to initialize node", err)
		}

		peerIP, peerPort, err := resolvePeer(ctx, a, args)
		if err != nil {
			fatal(a.lgr, "failed to resolve bootstrap peer", err)
		}

		if err := a.node.Join(ctx, a.ln, peerIP, peerPort); err != nil {
			fatal(a.lgr, "failed to join ring", err)
		}
		a.lgr.Info("ring joined")

		a.runUntilSignal(ctx)
	},
}

func resolvePeer(ctx context.Context, a *app, args []string) (string, uint16, error) {
	if len(args) == 2 {
		port, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return "", 0, fmt.Errorf("invalid peer port %q: %w", args[1], err)
		}
		return args[0], uint16(port), nil
	}

	peers, err := a.source.Discover(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("discovering bootstrap peers: %w", err)
	}
	if len(peers) == 0 {
		return "", 0, fmt.Errorf("no bootstrap peers available to join")
	}
	addr, ok, err := parseHostPort(peers[0])
	if err != nil || !ok {
		return "", 0, fmt.Errorf("malformed bootstrap peer %q", peers[0])
	}
	return addr.ip, addr.port, nil
}

type hostPort struct {
	ip   string
	port uint16
}

func parseHostPort(s string) (hostPort, bool, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return hostPort{}, false, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return hostPort{}, false, err
	}
	return hostPort{ip: host, port: uint16(port)}, true, nil
}
