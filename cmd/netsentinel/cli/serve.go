package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	appconfig "github.com/CaptianFluffy100/net-sentinel/internal/config"
	"github.com/CaptianFluffy100/net-sentinel/internal/scheduler"
	"github.com/CaptianFluffy100/net-sentinel/internal/serverset"
)

type serveOptions struct {
	serversPath string
	configPath  string
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load a monitored-server set and probe every entry on its own timer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.serversPath, "servers", "f", "", "path to a server set file (.lua or .yaml, required)")
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to an application config file")
	cmd.MarkFlagRequired("servers")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	appCfg, err := appconfig.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	set, err := serverset.Load(opts.serversPath)
	if err != nil {
		return fmt.Errorf("load server set: %w", err)
	}

	logPath := filepath.Join(appCfg.LogsDir, "netsentinel.log")
	sched := scheduler.New(logPath, appCfg.LogLines)

	for i := range set.Servers {
		srv := set.Servers[i]
		if srv.TimeoutMs == 0 {
			srv.TimeoutMs = appCfg.DefaultTimeoutMs
		}
		if err := sched.AddServer(&scheduler.Server{
			Name:      srv.Name,
			Address:   srv.Address,
			Port:      srv.Port,
			Protocol:  srv.Protocol,
			TimeoutMs: srv.TimeoutMs,
			Script:    srv.Script,
			Trace:     srv.Trace,
		}); err != nil {
			return fmt.Errorf("server %q: %w", srv.Name, err)
		}
	}

	sched.Start()
	fmt.Fprintf(cmd.OutOrStdout(), "serving %d monitored server(s), logging to %s\n", len(set.Servers), logPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	sched.StopAll()
	return nil
}
