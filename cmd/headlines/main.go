package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the version of the application, set at build time
var Version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	quiet      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "headlines",
		Short: "Top news stories in your terminal",
		Long: `headlines shows the top stories from NewsAPI or an RSS feed.
Scroll to load more, search with ctrl+s, refresh with ctrl+r, and shake
(ctrl+k, or a motion sensor stream) to refresh.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, off)")
	root.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "skip startup banner")

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newHeadlinesCmd(opts),
		newSearchCmd(opts),
		newHistoryCmd(opts),
		newPruneCmd(opts),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "headlines %s\n", Version)
			fmt.Fprintln(out, "Top stories in your terminal")
			fmt.Fprintln(out, "github.com/pders01/headlines")
		},
	}
}
