package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/nickyhof/TableDB"
	"github.com/nickyhof/TableDB/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

func newRootCmd() *cobra.Command {
	var cfgFile string

	// open loads config from the command's flags and opens the instance.
	open := func(cmd *cobra.Command) (*CLI, error) {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return nil, err
		}
		logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
		instance, err := TableDB.Open(cmd.Context(), cfg, logger)
		if err != nil {
			return nil, err
		}
		return NewCLI(instance, cfg.Identity, cmd.OutOrStdout()), nil
	}

	repl := func(cmd *cobra.Command, args []string) error {
		cli, err := open(cmd)
		if err != nil {
			return err
		}
		return cli.Run(cmd.Context())
	}

	root := &cobra.Command{
		Use:          "tabledb",
		Short:        "Typed in-process tables with git-backed snapshots",
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         repl,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default ./tabledb.yaml)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "repl",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE:  repl,
	})

	var snapshot bool
	run := &cobra.Command{
		Use:   "run <script.jsonl>",
		Short: "Execute JSON requests from a local, http(s):// or s3:// script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := open(cmd)
			if err != nil {
				return err
			}
			summary, err := cli.ImportScript(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d requests failed", summary.Failed, summary.Total())
			}
			if snapshot {
				return cli.snapshot(cmd.Context(), "Run "+args[0])
			}
			return nil
		},
	}
	run.Flags().BoolVar(&snapshot, "snapshot", false, "Commit a snapshot after the script succeeds")
	root.AddCommand(run)

	root.AddCommand(&cobra.Command{
		Use:   "apply <schema.yaml>",
		Short: "Create the tables a schema file declares and commit a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := open(cmd)
			if err != nil {
				return err
			}
			if err := cli.instance.ApplySchema(cmd.Context(), args[0]); err != nil {
				return err
			}
			return cli.snapshot(cmd.Context(), "Apply "+args[0])
		},
	})

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
