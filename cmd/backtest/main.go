package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	engine_types "github.com/rxtech-lab/argo-sim/internal/backtest/engine"
	engine "github.com/rxtech-lab/argo-sim/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-sim/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	level := zapcore.InfoLevel
	if cmd.Bool("verbose") {
		level = zapcore.DebugLevel
	}

	return logger.NewLoggerWithLevel(level)
}

func readEngineConfig(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read engine config: %w", err)
	}

	return string(content), nil
}

// runAction runs every strategy against every parameter file and data file.
func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	engineConfig, err := readEngineConfig(cmd.String("engine-config"))
	if err != nil {
		return err
	}

	backtester := engine.NewBacktestEngineV1WithLogger(log)
	if err := backtester.Initialize(engineConfig); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	for _, name := range cmd.StringSlice("strategy") {
		if err := backtester.LoadStrategyByName(name); err != nil {
			return err
		}
	}

	if err := backtester.SetConfigPath(cmd.String("strategy-config")); err != nil {
		return err
	}

	if err := backtester.SetDataPath(cmd.String("data")); err != nil {
		return err
	}

	if err := backtester.SetResultsFolder(cmd.String("results")); err != nil {
		return err
	}

	ds, err := datasource.NewDataSource(":memory:", log)
	if err != nil {
		return err
	}
	defer ds.Close()

	if err := backtester.SetDataSource(ds); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onRunStart := engine_types.OnRunStartCallback(func(runID string, configIndex int, configName string, dataFileIndex int, dataFilePath string, totalDataPoints int) error {
		bar = progressbar.NewOptions(totalDataPoints,
			progressbar.OptionSetDescription(fmt.Sprintf("%s / %s", filepath.Base(configName), filepath.Base(dataFilePath))),
			progressbar.OptionShowCount(),
		)

		return nil
	})
	onProcessData := engine_types.OnProcessDataCallback(func(current int, total int) error {
		return bar.Set(current)
	})
	onRunEnd := engine_types.OnRunEndCallback(func(configIndex int, configName string, dataFileIndex int, dataFilePath string, resultFolderPath string) {
		bar.Finish() //nolint:errcheck
		log.Info("Run finished", zap.String("results", resultFolderPath))
	})

	return backtester.Run(ctx, engine_types.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	})
}

// sweepGrid is the YAML layout of a sweep file.
type sweepGrid struct {
	Base strategy.Params  `yaml:"base"`
	Grid map[string][]any `yaml:"grid"`
}

// sweepAction runs one strategy over the cartesian product of a parameter grid.
func sweepAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	engineConfig, err := readEngineConfig(cmd.String("engine-config"))
	if err != nil {
		return err
	}

	config, err := engine.ParseConfig(engineConfig)
	if err != nil {
		return err
	}

	gridContent, err := os.ReadFile(cmd.String("grid"))
	if err != nil {
		return fmt.Errorf("failed to read sweep grid: %w", err)
	}

	var grid sweepGrid
	if err := yaml.Unmarshal(gridContent, &grid); err != nil {
		return fmt.Errorf("failed to parse sweep grid: %w", err)
	}

	paramSets, err := engine.ExpandGrid(grid.Base, grid.Grid)
	if err != nil {
		return err
	}

	strategyName := cmd.String("strategy")
	if _, err := strategy.Describe(strategyName); err != nil {
		return err
	}

	ds, err := datasource.NewDataSource(":memory:", log)
	if err != nil {
		return err
	}
	defer ds.Close()

	if err := ds.Initialize(cmd.String("data")); err != nil {
		return err
	}

	store, err := ds.Load(config.Query())
	if err != nil {
		return err
	}

	runner, err := engine.NewRunner(config, engine.WithLogger(log))
	if err != nil {
		return err
	}

	log.Info("Starting sweep",
		zap.String("strategy", strategyName),
		zap.Int("runs", len(paramSets)),
		zap.Int("bars", store.Len()),
	)

	results, err := runner.Sweep(ctx, store, func() strategy.Strategy {
		// the name was checked above
		strat, _ := strategy.New(strategyName)

		return strat
	}, paramSets, int(cmd.Int("concurrency")))
	if err != nil {
		return err
	}

	writer, err := engine.NewResultWriter(log)
	if err != nil {
		return err
	}
	defer writer.Close()

	bar := progressbar.NewOptions(len(results), progressbar.OptionSetDescription("Writing results"), progressbar.OptionShowCount())

	for i, result := range results {
		folder := filepath.Join(cmd.String("results"), strategyName, fmt.Sprintf("sweep_%03d", i))

		if err := writer.Record(result.Result); err != nil {
			return err
		}

		summary, err := writer.Write(folder, result.Result.Summary)
		if err != nil {
			return err
		}

		log.Debug("Sweep run written",
			zap.String("params", engine.Label(result.Params)),
			zap.Float64("total_return_pct", summary.TotalReturnPct),
			zap.String("folder", folder),
		)

		bar.Add(1) //nolint:errcheck
	}

	return nil
}

// schemaAction prints the JSON schema of the engine config or of a strategy's parameters.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	if name := cmd.String("strategy"); name != "" {
		schema, err = strategy.ConfigSchema(name)
	} else {
		schema, err = engine.NewBacktestEngineV1().GetConfigSchema()
	}

	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}

		return os.WriteFile(output, []byte(schema), 0644)
	}

	fmt.Println(schema)

	return nil
}

func main() {
	engineConfigFlag := &cli.StringFlag{
		Name:    "engine-config",
		Aliases: []string{"e"},
		Usage:   "Path to the backtest engine config. Defaults are used when empty",
	}
	dataFlag := &cli.StringFlag{
		Name:     "data",
		Aliases:  []string{"d"},
		Usage:    "Path or glob of the csv/parquet data files",
		Required: true,
	}
	resultsFlag := &cli.StringFlag{
		Name:    "results",
		Aliases: []string{"r"},
		Usage:   "Results folder",
		Value:   "results",
	}

	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Run bar backtests of built-in strategies",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run strategies against parameter files and data files",
				Flags: []cli.Flag{
					engineConfigFlag,
					dataFlag,
					resultsFlag,
					&cli.StringSliceFlag{
						Name:     "strategy",
						Aliases:  []string{"s"},
						Usage:    fmt.Sprintf("Strategy name (one of %v), repeatable", strategy.Names()),
						Required: true,
					},
					&cli.StringFlag{
						Name:     "strategy-config",
						Aliases:  []string{"c"},
						Usage:    "Path or glob of the strategy parameter files",
						Required: true,
					},
				},
				Action: runAction,
			},
			{
				Name:  "sweep",
				Usage: "Run one strategy over a parameter grid",
				Flags: []cli.Flag{
					engineConfigFlag,
					dataFlag,
					resultsFlag,
					&cli.StringFlag{
						Name:     "strategy",
						Aliases:  []string{"s"},
						Usage:    fmt.Sprintf("Strategy name (one of %v)", strategy.Names()),
						Required: true,
					},
					&cli.StringFlag{
						Name:     "grid",
						Aliases:  []string{"g"},
						Usage:    "YAML file with base parameters and a grid of values",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Parallel runs, 0 means one per CPU",
						Value: 0,
					},
				},
				Action: sweepAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the engine config or of a strategy",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Print this strategy's parameter schema instead",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the schema to this file",
					},
				},
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
