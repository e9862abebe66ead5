package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"cavernlsd/config"
	"cavernlsd/contract"
	"cavernlsd/host/mockchain"
	"cavernlsd/native/lsdhub"
	"cavernlsd/native/wrapper"
	"cavernlsd/storage"
)

type simulation struct {
	days        int
	ratio       string
	deposit     int64
	dailyGrowth string
	adapter     string
	start       int64
}

func simulateCmd(a *app) *cobra.Command {
	sim := simulation{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a wrapper against a simulated LSD hub and print every daily decompound.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return sim.run(cmd.Context(), a, db, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&sim.days, "days", 30, "number of daily decompounds")
	cmd.Flags().StringVar(&sim.ratio, "ratio", "0.1", `yearly max decompound ratio, "none" for uncapped`)
	cmd.Flags().Int64Var(&sim.deposit, "deposit", 1_000_000, "LSD deposited before the first day")
	cmd.Flags().StringVar(&sim.dailyGrowth, "daily-growth", "0.0003", "LSD exchange rate increase per day")
	cmd.Flags().StringVar(&sim.adapter, "adapter", "steak", "LSD adapter kind: steak or lp")
	cmd.Flags().Int64Var(&sim.start, "start", 1_700_000_000, "unix time of the simulated genesis")
	return cmd
}

// openStore opens a fresh store of the configured backend under DataDir.
func openStore(cfg *config.Config) (storage.Database, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		db := storage.NewMemDB()
		return db, db.Close, nil
	case config.StoreLevelDB:
		path := filepath.Join(cfg.DataDir, "simulate.ldb")
		if err := os.RemoveAll(path); err != nil {
			return nil, nil, err
		}
		db, err := storage.NewLevelDB(path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, err
		}
		path := filepath.Join(cfg.DataDir, "simulate.bolt")
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, nil, err
		}
		db, err := storage.NewBoltDB(path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
}

func (s simulation) run(ctx context.Context, a *app, db storage.Database, out io.Writer) error {
	growth, err := math.LegacyNewDecFromStr(s.dailyGrowth)
	if err != nil {
		return fmt.Errorf("daily-growth: %w", err)
	}
	if s.deposit <= 0 {
		return fmt.Errorf("deposit must be positive")
	}

	chain := mockchain.New(time.Unix(s.start, 0))
	var (
		hub     = mockchain.Contract("cavern-hub")
		lsdHub  = mockchain.Contract("lsd-hub")
		lsdCoin = mockchain.Contract("lsd-token")
		user    = mockchain.Addr("depositor")
		self    = mockchain.Contract("wrapper")
	)
	var lsd lsdhub.Config
	switch strings.ToLower(s.adapter) {
	case "steak":
		lsd.Steak = &lsdhub.SteakConfig{Hub: lsdHub, Token: lsdCoin}
	case "lp":
		lsd.LP = &lsdhub.LPConfig{Hub: lsdHub, Token: lsdCoin}
	default:
		return fmt.Errorf("unsupported adapter %q", s.adapter)
	}
	chain.SetHubRate(lsdHub, math.LegacyOneDec())
	chain.SetTokenBalance(lsdCoin, user, math.NewInt(s.deposit))

	c := contract.New(self, db, chain, contract.WithLogger(a.logger))
	env := func() wrapper.Env { return wrapper.Env{Height: chain.Height(), Time: chain.Now()} }
	msg := contract.InstantiateMsg{
		Name:        "Cavern Wrapped LSD",
		Symbol:      "cwLSD",
		Decimals:    6,
		HubContract: hub,
		LSDConfig:   lsd,
	}
	if !strings.EqualFold(s.ratio, "none") {
		ratio, err := math.LegacyNewDecFromStr(s.ratio)
		if err != nil {
			return fmt.Errorf("ratio: %w", err)
		}
		msg.MaxDecompoundRatio = &ratio
	}
	if _, err := c.Instantiate(ctx, env(), msg); err != nil {
		return err
	}
	execute := func(sender, raw string) (*wrapper.Response, error) {
		resp, err := c.Execute(ctx, env(), wrapper.MessageInfo{Sender: sender}, []byte(raw))
		if err != nil {
			return nil, err
		}
		return resp, chain.Execute(ctx, resp.Messages)
	}
	if _, err := execute(user, fmt.Sprintf(`{"mint_with":{"recipient":%q,"lsd_amount":"%d"}}`, user, s.deposit)); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	fmt.Fprintf(out, "day  lsd_rate      extracted  wrapper_rate  expected_rate\n")
	rate := math.LegacyOneDec()
	total := math.ZeroInt()
	for day := 1; day <= s.days; day++ {
		rate = rate.Add(growth)
		chain.SetHubRate(lsdHub, rate)
		chain.Advance(24 * time.Hour)

		extracted := "-"
		resp, err := execute(hub, `{"decompound":{}}`)
		switch {
		case err == nil:
			if v, ok := resp.Attribute("lsd_rewards"); ok {
				extracted = v
				if n, ok := math.NewIntFromString(v); ok {
					total = total.Add(n)
				}
			} else {
				extracted = "skipped"
			}
		case errors.Is(err, wrapper.ErrTooSoon):
			extracted = "too soon"
		default:
			return fmt.Errorf("day %d: %w", day, err)
		}

		bz, err := c.Query(ctx, env(), []byte(`{"token_info":{}}`))
		if err != nil {
			return err
		}
		var info wrapper.TokenInfo
		if err := json.Unmarshal(bz, &info); err != nil {
			return err
		}
		fmt.Fprintf(out, "%-4d %-13s %-10s %-13s %s\n", day, trim(rate), extracted,
			trim(info.ExchangeRate), trim(info.ExpectedExchangeRate))
	}
	fmt.Fprintf(out, "total extracted: %s LSD, treasury balance: %s\n", total, chain.TokenBalance(lsdCoin, hub))
	return nil
}

func trim(d math.LegacyDec) string {
	s := d.String()
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
