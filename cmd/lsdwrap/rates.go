package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cavernlsd/config"
	"cavernlsd/services/chainquery"
	"cavernlsd/services/monitor"
)

func ratesCmd(a *app) *cobra.Command {
	var (
		places int32
		output string
	)
	cmd := &cobra.Command{
		Use:   "rates [wrapper...]",
		Short: "Show live exchange rates and pending decompound rewards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			wrappers, err := selectWrappers(a.cfg, args)
			if err != nil {
				return err
			}
			client, err := chainquery.Dial(chainquery.Config{
				Address:          a.cfg.GRPCAddress,
				Insecure:         a.cfg.GRPCInsecure,
				QueriesPerSecond: a.cfg.QueriesPerSecond,
				Burst:            a.cfg.QueryBurst,
				Timeout:          time.Duration(a.cfg.TimeoutSeconds) * time.Second,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			targets := make([]monitor.Target, 0, len(wrappers))
			for _, w := range wrappers {
				targets = append(targets, monitor.Target{Name: w.Name, Contract: w.Contract, LSD: w.LSD})
			}
			mon, err := monitor.New(client, targets, monitor.Options{Logger: a.logger})
			if err != nil {
				return err
			}
			snaps, pollErr := mon.Poll(cmd.Context())
			views := make([]monitor.View, 0, len(snaps))
			for _, snap := range snaps {
				views = append(views, monitor.NewView(snap, places))
			}
			if wantJSON(output) {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(views); err != nil {
					return err
				}
				return pollErr
			}
			printViews(cmd.OutOrStdout(), views)
			return pollErr
		},
	}
	cmd.Flags().Int32Var(&places, "places", 6, "decimal places shown for rates")
	cmd.Flags().StringVar(&output, "output", "auto", "text, json, or auto (json when stdout is not a terminal)")
	return cmd
}

func wantJSON(output string) bool {
	switch output {
	case "json":
		return true
	case "text":
		return false
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

func printViews(out io.Writer, views []monitor.View) {
	for _, v := range views {
		fmt.Fprintf(out, "%s (%s)\n", v.Wrapper, v.Contract)
		fmt.Fprintf(out, "  exchange rate:      %s\n", v.ExchangeRate)
		fmt.Fprintf(out, "  expected rate:      %s\n", v.ExpectedRate)
		fmt.Fprintf(out, "  lsd rate:           %s\n", v.LSDRate)
		fmt.Fprintf(out, "  supply:             %s\n", v.Supply)
		fmt.Fprintf(out, "  pending lsd:        %s\n", v.PendingLSD)
		if v.MaxDecompoundRatio != "" {
			fmt.Fprintf(out, "  yearly cap:         %s (used %s)\n", v.MaxDecompoundRatio, v.UsedYearlyRatio)
		}
		fmt.Fprintf(out, "  last decompound:    %s\n", v.LastDecompound)
		if v.Slashed {
			fmt.Fprintln(out, "  SLASHED: rate below one, decompound skipped")
		}
		if v.Blocked != "" {
			fmt.Fprintf(out, "  blocked:            %s\n", v.Blocked)
		}
	}
}

func selectWrappers(cfg *config.Config, names []string) ([]config.Wrapper, error) {
	if len(names) == 0 {
		if len(cfg.Wrappers) == 0 {
			return nil, fmt.Errorf("no wrappers configured")
		}
		return cfg.Wrappers, nil
	}
	out := make([]config.Wrapper, 0, len(names))
	for _, name := range names {
		w, ok := cfg.Wrapper(name)
		if !ok {
			return nil, fmt.Errorf("unknown wrapper %q", name)
		}
		out = append(out, w)
	}
	return out, nil
}
