package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moznion/go-optional"
	engine "github.com/rxtech-lab/argo-backtest/internal/engine"
	enginev1 "github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	yaml "gopkg.in/yaml.v2"
)

// runAction wires the loader, engine, and recorder together and drives one
// run. Ctrl-C cancels at the next bar boundary and still persists the partial
// result.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	dataPath := cmd.String("data")
	strategyName := cmd.String("strategy")
	paramsPath := cmd.String("params")
	outputDir := cmd.String("output")

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	config, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	params := map[string]any{}

	if paramsPath != "" {
		raw, err := os.ReadFile(paramsPath)
		if err != nil {
			return fmt.Errorf("failed to read params: %w", err)
		}

		if err := yaml.Unmarshal(raw, &params); err != nil {
			return fmt.Errorf("failed to parse params: %w", err)
		}
	}

	backtester := enginev1.NewBacktestEngineV1(log)
	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	runConfig := &enginev1.RunConfig{}
	if err := yaml.Unmarshal(config, runConfig); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	loader, err := datasource.NewDuckDBLoader()
	if err != nil {
		return fmt.Errorf("failed to open data loader: %w", err)
	}
	defer loader.Close()

	window, err := loader.Load(dataPath, runConfig.Symbol, optional.None[time.Time](), optional.None[time.Time]())
	if err != nil {
		return fmt.Errorf("failed to load bars: %w", err)
	}

	if err := backtester.SetBarWindow(window); err != nil {
		return fmt.Errorf("failed to attach bar window: %w", err)
	}

	strat, err := strategy.Lookup(strategyName)
	if err != nil {
		return err
	}

	if err := backtester.LoadStrategy(strat, params); err != nil {
		return fmt.Errorf("failed to load strategy: %w", err)
	}

	bar := progressbar.NewOptions(window.Len(),
		progressbar.OptionSetDescription(fmt.Sprintf("backtesting %s", runConfig.Symbol)),
		progressbar.OptionShowCount(),
	)

	onProgress := engine.OnProgressCallback(func(current, total int) {
		bar.ChangeMax(total)
		_ = bar.Set(current)
	})

	result, err := backtester.Run(ctx, optional.Some(onProgress))
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	_ = bar.Finish()
	fmt.Println()

	recorder, err := enginev1.NewRecorder(outputDir, log)
	if err != nil {
		return fmt.Errorf("failed to open recorder: %w", err)
	}
	defer recorder.Close()

	if err := recorder.Record(result, string(config)); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	fmt.Printf("run %s finished: status=%s trades=%d return=%.2f%% max_dd=%.2f%%\n",
		result.RunID, result.Status, result.Stats.NumTrades,
		result.Stats.TotalReturnPct, result.Stats.MaxDrawdownPct)

	return nil
}

// schemaAction prints the JSON schema of the run configuration.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	schema, err := enginev1.NewBacktestEngineV1(log).GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

// strategiesAction lists the builtin strategies.
func strategiesAction(ctx context.Context, cmd *cli.Command) error {
	for _, name := range strategy.Names() {
		fmt.Println(name)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run deterministic backtests over historical bar data",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a strategy against a bar file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the run configuration YAML",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the bar data file (parquet or csv)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "strategy",
						Aliases:  []string{"s"},
						Usage:    fmt.Sprintf("Builtin strategy name (%v)", strategy.Names()),
						Required: true,
					},
					&cli.StringFlag{
						Name:    "params",
						Aliases: []string{"p"},
						Usage:   "Path to a YAML file with strategy parameter values",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for run results",
						Value:   "results",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the run configuration",
				Action: schemaAction,
			},
			{
				Name:   "strategies",
				Usage:  "List builtin strategies",
				Action: strategiesAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
