package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CaptianFluffy100/net-sentinel/internal/scriptgen"
)

type genOptions struct {
	pcapPath   string
	outPath    string
	clientAddr string
}

func newGenCmd() *cobra.Command {
	opts := genOptions{}
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a skeleton probe script from a packet capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.pcapPath, "pcap", "i", "", "path to a .pcap or .pcapng capture (required)")
	fs.StringVarP(&opts.outPath, "out", "o", "", "output script path (default: stdout)")
	fs.StringVar(&opts.clientAddr, "client", "", "IP address of the probing client, to disambiguate direction")
	cmd.MarkFlagRequired("pcap")

	return cmd
}

func runGen(cmd *cobra.Command, opts genOptions) error {
	text, err := scriptgen.Generate(opts.pcapPath, opts.clientAddr)
	if err != nil {
		return fmt.Errorf("generate script: %w", err)
	}

	if opts.outPath == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}

	return os.WriteFile(opts.outPath, []byte(text), 0644)
}
