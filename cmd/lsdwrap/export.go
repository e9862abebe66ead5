package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cavernlsd/services/monitor"
)

func exportCmd(a *app) *cobra.Command {
	var (
		dsn   string
		out   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "export <wrapper>",
		Short: "Export a wrapper's recorded monitor snapshots to parquet.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := monitor.OpenDatabase(dsn)
			if err != nil {
				return err
			}
			rec, err := monitor.NewGormRecorder(db)
			if err != nil {
				return err
			}
			rows, err := rec.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("no snapshots recorded for %q", args[0])
			}
			if out == "" {
				out = args[0] + ".parquet"
			}
			if err := monitor.ExportParquet(out, rows); err != nil {
				return err
			}
			a.logger.Info("exported snapshots", "wrapper", args[0], "rows", len(rows), "path", out)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d snapshots to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "database", "monitord.sqlite", "monitord database DSN (sqlite path or postgres:// URL)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, <wrapper>.parquet by default")
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum number of most recent snapshots")
	return cmd
}
