package cliapp

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const versionString = "0.1.0"

type cliOptions struct {
	configPath string
	verbose    bool
	logFormat  string

	dbPath      string
	metricsAddr string
	chainFrom   string
	ui          bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "stackwalk",
		Short:         "Index source trees into blocks, call stacks and call graphs",
		Long:          "stackwalk parses source files with tree-sitter, extracts their code blocks and call sites, and resolves them into a call graph.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(opts.stderr, opts.verbose, opts.logFormat)
		},
	}
	root.SetOut(opts.stdout)
	root.SetErr(opts.stderr)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: nearest stackwalk.toml above the root)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text|json")

	root.AddCommand(newIndexCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newLanguagesCmd(opts))
	root.AddCommand(newImpactCmd(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stackwalk v%s\n", versionString)
		},
	})
	return root
}

func newIndexCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [root]",
		Short: "Index a directory once and write the configured outputs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), opts, rootArg(args))
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

func newWatchCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Re-index a directory whenever its sources change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, rootArg(args))
		},
	}
	addRunFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.ui, "ui", false, "show runs in a terminal dashboard (logs go to the state log file)")
	return cmd
}

func newLanguagesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List configured languages, extensions and matcher roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLanguages(opts, ".")
		},
	}
}

func newImpactCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impact <key> [root]",
		Short: "List the direct and transitive callers of a block or external callee",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImpact(cmd.Context(), opts, args[0], rootArg(args[1:]))
		},
	}
	cmd.Flags().StringVar(&opts.chainFrom, "from", "", "also print a shortest call chain from this node key")
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *cliOptions) {
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "persist runs to this SQLite database")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
