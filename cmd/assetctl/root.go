package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"assetproxy/pkg/assetclient"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:3001"

// globalOptions 是所有子命令共享的参数。
type globalOptions struct {
	server  string
	output  string
	timeout time.Duration
}

func (o *globalOptions) client() *assetclient.Client {
	return assetclient.New(o.server, assetclient.WithTimeout(o.timeout))
}

func (o *globalOptions) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	server := os.Getenv("ASSETPROXY_URL")
	if server == "" {
		server = defaultServer
	}

	root := &cobra.Command{
		Use:   "assetctl",
		Short: "Manage images through the asset proxy",
		Long: `assetctl talks to a running asset proxy over HTTP.

Examples:
  assetctl list --folder business-images --limit 50
  assetctl stats
  assetctl delete-many business-images/a business-images/b
  assetctl url business-images/cafe --cloud demo --width 300 --crop fill`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputJSON && opts.output != outputYAML {
				return fmt.Errorf("unsupported output format %q (use json or yaml)", opts.output)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", server, "asset proxy base URL (env ASSETPROXY_URL)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputJSON, "output format: json or yaml")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")

	root.AddCommand(
		newListCmd(opts),
		newStatsCmd(opts),
		newDeleteCmd(opts),
		newDeleteManyCmd(opts),
		newHealthCmd(opts),
		newFoldersCmd(opts),
		newOldCmd(opts),
		newUploadCmd(opts),
		newDeletionsCmd(opts),
		newValidateCmd(opts),
		newURLCmd(opts),
	)

	return root
}
