// Package main is the entry point for the synthetic-dividend
// bracket-ladder backtesting engine's CLI. It wires the provider
// registry, dual-format cache, algorithm factory, and daily backtest
// driver together, prints a JSON summary, and optionally persists the
// run and/or reruns it on a cron schedule.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sdbacktest/engine/internal/algofactory"
	"github.com/sdbacktest/engine/internal/backtest"
	"github.com/sdbacktest/engine/internal/bracket"
	"github.com/sdbacktest/engine/internal/cache"
	"github.com/sdbacktest/engine/internal/composer"
	"github.com/sdbacktest/engine/internal/config"
	"github.com/sdbacktest/engine/internal/diag"
	"github.com/sdbacktest/engine/internal/domain"
	"github.com/sdbacktest/engine/internal/provider"
	"github.com/sdbacktest/engine/internal/returns"
	"github.com/sdbacktest/engine/internal/scheduler"
	"github.com/sdbacktest/engine/internal/series"
	"github.com/sdbacktest/engine/internal/store"
	"github.com/sdbacktest/engine/pkg/logger"
)

const dateLayout = "2006-01-02"

func main() {
	ticker := flag.String("ticker", "", "ticker to backtest (single-asset mode), or a MOCK-* / FIXTURE-* pattern")
	qty := flag.Float64("qty", 100, "initial share quantity")
	startStr := flag.String("start", "", "backtest start date, YYYY-MM-DD")
	endStr := flag.String("end", "", "backtest end date, YYYY-MM-DD")
	algo := flag.String("algo", "buy-and-hold", "algorithm identifier (buy-and-hold, sdN, sd-{r},{s}, sd-ath-only-{r},{s})")
	seed := flag.Float64("seed", 0, "bracket-ladder snap seed price (0 disables snapping)")
	simple := flag.Bool("simple", false, "disable daily interest accrual on idle cash")
	riskFreePct := flag.Float64("risk-free-pct", 0, "flat annual risk-free rate in percent, e.g. 5, applied to idle cash (overrides config default)")
	withdrawalRate := flag.Float64("withdrawal-rate", 0, "annual withdrawal rate as a decimal, e.g. 0.04")
	withdrawalDays := flag.Int("withdrawal-days", 0, "withdrawal cadence in days (0 disables withdrawals)")
	cpiFile := flag.String("cpi-file", "", "path to a Date,Value CPI series CSV")
	benchmarkFile := flag.String("benchmark-file", "", "path to a Date,Value benchmark series CSV")
	dataURL := flag.String("data-url", "", "base URL for the optional JSON price/dividend data source")
	fixtureDir := flag.String("fixture-dir", "", "directory of FIXTURE-* JSON bar/dividend fixtures")
	assetsFlag := flag.String("assets", "", "comma-separated TICKER:WEIGHT:ALGO triples for portfolio composer mode")
	initialCash := flag.Float64("initial-cash", 10000, "initial cash for portfolio composer mode")
	allowMargin := flag.Bool("allow-margin", false, "allow buys that would push cash negative (composer mode)")
	cashInterestPct := flag.Float64("cash-interest-pct", 0, "annual interest rate in percent, e.g. 5, applied to the shared cash balance (composer mode)")
	saveRun := flag.Bool("save-run", false, "persist this run to the sqlite run-history store")
	runLabel := flag.String("run-label", "", "label stored alongside a saved run")
	schedule := flag.String("schedule", "", "optional cron expression to rerun this backtest on a schedule instead of once")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})

	if warning := diag.CheckCacheDiskSpace(cfg.CacheDir, log); warning != nil {
		fmt.Fprintln(os.Stderr, warning.String())
	}

	registry := buildRegistry(cfg, log, *dataURL, *fixtureDir)

	runOnce := func() error {
		if *assetsFlag != "" {
			return runComposer(registry, log, *assetsFlag, *initialCash, *allowMargin, *startStr, *endStr, *withdrawalRate, *withdrawalDays, *cashInterestPct)
		}
		return runSingle(singleRunParams{
			registry:       registry,
			log:            log,
			cfg:            cfg,
			ticker:         *ticker,
			qty:            *qty,
			startStr:       *startStr,
			endStr:         *endStr,
			algo:           *algo,
			seed:           *seed,
			simple:         *simple,
			riskFreePct:    *riskFreePct,
			withdrawalRate: *withdrawalRate,
			withdrawalDays: *withdrawalDays,
			cpiFile:        *cpiFile,
			benchmarkFile:  *benchmarkFile,
			saveRun:        *saveRun,
			runLabel:       *runLabel,
		})
	}

	if *schedule == "" {
		if err := runOnce(); err != nil {
			log.Fatal().Err(err).Msg("backtest run failed")
		}
		return
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(*schedule, scheduledRun{fn: runOnce, name: "backtest"}); err != nil {
		log.Fatal().Err(err).Msg("invalid --schedule expression")
	}
	sched.Start()

	log.Info().Str("schedule", *schedule).Msg("running on schedule, press Ctrl+C to stop")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	sched.Stop()
}

type scheduledRun struct {
	fn   func() error
	name string
}

func (s scheduledRun) Run() error   { return s.fn() }
func (s scheduledRun) Name() string { return s.name }

func buildRegistry(cfg *config.Config, log zerolog.Logger, dataURL, fixtureDir string) *provider.Registry {
	registry := provider.NewRegistry()
	registry.Register("CASH", 0, provider.NewCash)
	registry.Register("MOCK-*", 10, provider.NewMock)
	if fixtureDir != "" {
		registry.Register("FIXTURE-*", 10, newFixtureFactory(fixtureDir))
	}

	cacheStore := cache.NewStore(cfg.CacheDir, time.Duration(cfg.LockTimeoutSec)*time.Second, log)
	fetcher := newJSONFetcher(dataURL)
	registry.Register("*", 100, provider.NewNetworkFactory(fetcher, cacheStore, log))

	return registry
}

func parseDateFlag(s, flagName string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("-%s is required", flagName)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -%s %q: %w", flagName, s, err)
	}
	return t, nil
}

func loadSeriesFile(path string) (map[string]float64, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening series file %s: %w", path, err)
	}
	defer f.Close()

	s, err := series.LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing series file %s: %w", path, err)
	}
	return s.AsMap(), nil
}

type singleRunParams struct {
	registry       *provider.Registry
	log            zerolog.Logger
	cfg            *config.Config
	ticker         string
	qty            float64
	startStr       string
	endStr         string
	algo           string
	seed           float64
	simple         bool
	riskFreePct    float64
	withdrawalRate float64
	withdrawalDays int
	cpiFile        string
	benchmarkFile  string
	saveRun        bool
	runLabel       string
}

func runSingle(p singleRunParams) error {
	if p.ticker == "" {
		return fmt.Errorf("-ticker is required in single-asset mode")
	}
	start, err := parseDateFlag(p.startStr, "start")
	if err != nil {
		return err
	}
	end, err := parseDateFlag(p.endStr, "end")
	if err != nil {
		return err
	}

	prov, err := p.registry.Resolve(p.ticker)
	if err != nil {
		return err
	}
	bars, err := prov.GetPrices(start, end)
	if err != nil {
		return err
	}

	alg, err := algofactory.Build(p.algo, p.seed)
	if err != nil {
		return err
	}

	riskFreeDaily := p.riskFreePct
	if riskFreeDaily == 0 {
		riskFreeDaily = p.cfg.DefaultRiskFreePct
	}

	cpi, err := loadSeriesFile(p.cpiFile)
	if err != nil {
		return err
	}
	benchmark, err := loadSeriesFile(p.benchmarkFile)
	if err != nil {
		return err
	}

	driver := backtest.NewDriver(p.log)
	summary, err := driver.Run(backtest.Params{
		Ticker:         p.ticker,
		InitialQty:     p.qty,
		Start:          start,
		End:            end,
		Algo:           alg,
		SimpleMode:     p.simple,
		RiskFreeDaily:  riskFreeDaily / 100 / 365.25,
		WithdrawalRate: p.withdrawalRate,
		WithdrawalDays: p.withdrawalDays,
		CPI:            cpi,
	}, bars)
	if err != nil {
		return err
	}

	adjusted := returns.Compute(summary, cpi, benchmark, riskFreeDaily/100)

	if p.saveRun {
		if err := persistRun(p.cfg.RunStorePath, p.log, summary, p.algo, p.runLabel); err != nil {
			p.log.Error().Err(err).Msg("failed to save run")
		}
	}

	return printJSON(struct {
		Summary  backtest.Summary `json:"summary"`
		Adjusted returns.Adjusted `json:"adjusted"`
	}{summary, adjusted})
}

func persistRun(path string, log zerolog.Logger, summary backtest.Summary, algo, label string) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := store.NewRunRepository(db, log)
	id, err := repo.Save(summary, algo, label)
	if err != nil {
		return err
	}
	log.Info().Str("run_id", id).Msg("run saved")
	return nil
}

func runComposer(registry *provider.Registry, log zerolog.Logger, assetsFlag string, initialCash float64, allowMargin bool, startStr, endStr string, withdrawalRate float64, withdrawalDays int, cashInterestPct float64) error {
	start, err := parseDateFlag(startStr, "start")
	if err != nil {
		return err
	}
	end, err := parseDateFlag(endStr, "end")
	if err != nil {
		return err
	}

	assets, err := parseAssets(assetsFlag)
	if err != nil {
		return err
	}

	source := &registrySource{registry: registry}
	comp := composer.New(source, log)

	result, err := comp.Run(context.Background(), composer.Params{
		Assets:           assets,
		InitialCash:      initialCash,
		Start:            start,
		End:              end,
		AllowMargin:      allowMargin,
		WithdrawalRate:   withdrawalRate,
		WithdrawalDays:   withdrawalDays,
		CashInterestRate: cashInterestPct / 100,
	})
	if err != nil {
		return err
	}

	return printJSON(result)
}

// registrySource adapts provider.Registry's per-ticker Provider to
// composer.PriceSource's (ticker, start, end) shape.
type registrySource struct {
	registry *provider.Registry
}

func (s *registrySource) GetPrices(ticker string, start, end time.Time) ([]domain.Bar, error) {
	prov, err := s.registry.Resolve(ticker)
	if err != nil {
		return nil, err
	}
	return prov.GetPrices(start, end)
}

func parseAssets(spec string) ([]composer.Asset, error) {
	var assets []composer.Asset
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid -assets entry %q: expected TICKER:WEIGHT:ALGO", part)
		}
		weight, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight in %q: %w", part, err)
		}
		algoID := fields[2]
		assets = append(assets, composer.Asset{
			Ticker: fields[0],
			Weight: weight,
			AlgoFactory: func() bracket.Algorithm {
				alg, err := algofactory.Build(algoID, 0)
				if err != nil {
					return bracket.BuyAndHold{}
				}
				return alg
			},
		})
	}
	return assets, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
