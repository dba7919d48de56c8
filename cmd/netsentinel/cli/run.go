package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/CaptianFluffy100/net-sentinel/internal/probe"
	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/transport"
)

type runOptions struct {
	scriptPath string
	host       string
	port       int
	protocol   string
	timeout    time.Duration
	trace      bool
}

func newRunCmd() *cobra.Command {
	opts := runOptions{protocol: "tcp", timeout: 5 * time.Second}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single probe script once against a target and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbeOnce(cmd, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.scriptPath, "script", "s", "", "path to a probe script file (required)")
	fs.StringVar(&opts.host, "host", "", "target host or IP (required)")
	fs.IntVarP(&opts.port, "port", "p", 0, "target port (required)")
	fs.StringVar(&opts.protocol, "protocol", "tcp", "tcp, udp, http, or https")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Second, "connection and I/O timeout")
	fs.BoolVar(&opts.trace, "trace", false, "print every block the probe executes to stderr")
	cmd.MarkFlagRequired("script")
	cmd.MarkFlagRequired("host")
	cmd.MarkFlagRequired("port")

	return cmd
}

func runProbeOnce(cmd *cobra.Command, opts runOptions) error {
	data, err := os.ReadFile(opts.scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	scr, err := script.Parse(string(data))
	if err != nil {
		return fmt.Errorf("parse script: %w", err)
	}

	proto, err := transport.ParseProtocol(opts.protocol)
	if err != nil {
		return err
	}
	target := transport.Target{Host: opts.host, Port: opts.port, Protocol: proto, Timeout: opts.timeout}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout*3)
	defer cancel()

	var res *probe.Result
	if opts.trace {
		res, err = probe.Run(ctx, scr, target, func(msg string) {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		})
	} else {
		res, err = probe.Run(ctx, scr, target)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Label)
	if !res.Success {
		fmt.Fprintf(cmd.ErrOrStderr(), "probe failed (%s): %v\n", res.ErrKind, res.Err)
		os.Exit(1)
	}
	return nil
}
