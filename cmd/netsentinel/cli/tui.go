package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	appconfig "github.com/CaptianFluffy100/net-sentinel/internal/config"
	"github.com/CaptianFluffy100/net-sentinel/internal/scheduler"
	"github.com/CaptianFluffy100/net-sentinel/internal/serverset"
	"github.com/CaptianFluffy100/net-sentinel/internal/tui"
)

type tuiOptions struct {
	serversPath string
	configPath  string
}

func newTUICmd() *cobra.Command {
	opts := tuiOptions{}
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Watch a monitored-server set probe live in a terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.serversPath, "servers", "f", "", "path to a server set file (.lua or .yaml, required)")
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to an application config file")
	cmd.MarkFlagRequired("servers")

	return cmd
}

func runTUI(opts tuiOptions) error {
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
	defer sched.StopAll()

	return tui.Run(sched, sched.Names(), version)
}
