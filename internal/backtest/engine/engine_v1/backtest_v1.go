package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-sim/internal/backtest/engine"
	"github.com/rxtech-lab/argo-sim/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-sim/internal/indicator"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1 struct {
	config              BacktestEngineV1Config
	strategies          []loadedStrategy
	strategyConfigPaths []string
	strategyConfigs     []string
	dataPaths           []string
	resultsFolder       string
	log                 *logger.Logger
	hasLogger           bool
	indicatorRegistry   *indicator.Registry
	datasource          datasource.DataSource
}

// loadedStrategy builds the strategy instance of one run.
type loadedStrategy struct {
	name        string
	newStrategy func() strategy.Strategy
}

// configItem is one strategy parameter document.
type configItem struct {
	name   string
	params strategy.Params
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:              EmptyConfig(),
		strategies:          nil,
		strategyConfigPaths: nil,
		strategyConfigs:     nil,
		dataPaths:           nil,
		resultsFolder:       "",
		log:                 logger.NewNopLogger(),
		hasLogger:           false,
		indicatorRegistry:   indicator.DefaultRegistry(),
		datasource:          nil,
	}
}

// NewBacktestEngineV1WithLogger creates an engine that logs to log instead of
// creating its own logger in Initialize.
func NewBacktestEngineV1WithLogger(log *logger.Logger) engine.Engine {
	b := NewBacktestEngineV1().(*BacktestEngineV1)
	b.log = log
	b.hasLogger = true

	return b
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	parsed, err := ParseConfig(config)
	if err != nil {
		return err
	}

	b.config = parsed

	if !b.hasLogger {
		log, err := logger.NewLogger()
		if err != nil {
			return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", err)
		}

		b.log = log
		b.hasLogger = true
	}

	b.log.Debug("Backtest engine initialized",
		zap.Float64("initial_cash", b.config.InitialCash),
		zap.String("fill_timing", string(b.config.FillTiming)),
		zap.String("tiebreak", string(b.config.StopTargetTieBreak)),
	)

	return nil
}

// LoadStrategy implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategy(strat strategy.Strategy) error {
	if strat == nil {
		return errors.New(errors.ErrCodeBacktestNoStrategy, "strategy is nil")
	}

	b.strategies = append(b.strategies, loadedStrategy{
		name:        strat.Name(),
		newStrategy: func() strategy.Strategy { return strat },
	})
	b.log.Debug("Strategy loaded",
		zap.String("strategy", strat.Name()),
		zap.Int("total_strategies", len(b.strategies)),
	)

	return nil
}

// LoadStrategyByName implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategyByName(name string) error {
	if _, err := strategy.Describe(name); err != nil {
		return err
	}

	b.strategies = append(b.strategies, loadedStrategy{
		name: name,
		newStrategy: func() strategy.Strategy {
			// the name was checked above
			strat, _ := strategy.New(name)

			return strat
		},
	})
	b.log.Debug("Strategy loaded",
		zap.String("strategy", name),
		zap.Int("total_strategies", len(b.strategies)),
	)

	return nil
}

// SetConfigPath implements engine.Engine.
func (b *BacktestEngineV1) SetConfigPath(path string) error {
	// use glob to get all the files that match the path
	files, err := filepath.Glob(path)
	if err != nil {
		b.log.Error("Failed to set config path",
			zap.String("path", path),
			zap.Error(err),
		)

		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid config path %s", path)
	}

	b.strategyConfigPaths = files
	b.strategyConfigs = nil
	b.log.Debug("Config paths set",
		zap.Strings("files", files),
	)

	return nil
}

// SetConfigContent implements engine.Engine.
func (b *BacktestEngineV1) SetConfigContent(configs []string) error {
	b.strategyConfigs = configs
	b.strategyConfigPaths = nil
	b.log.Debug("Config content set",
		zap.Int("count", len(configs)),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	// use glob to get all the files that match the path
	files, err := filepath.Glob(path)
	if err != nil {
		b.log.Error("Failed to set data path",
			zap.String("path", path),
			zap.Error(err),
		)

		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid data path %s", path)
	}

	absolutePaths := make([]string, len(files))

	for i, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to resolve %s", file)
		}

		absolutePaths[i] = absPath
	}

	b.dataPaths = absolutePaths
	b.log.Debug("Data paths set",
		zap.Strings("files", absolutePaths),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(ds datasource.DataSource) error {
	b.datasource = ds

	return nil
}

// Run implements engine.Engine. Every strategy runs against every parameter
// document and every data file, one run at a time.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (err error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() { (*callbacks.OnBacktestEnd)(err) }()
	}

	if err := b.preRunCheck(); err != nil {
		return err
	}

	configs, err := b.loadConfigs()
	if err != nil {
		return err
	}

	// remove results of a previous run
	if _, statErr := os.Stat(b.resultsFolder); statErr == nil {
		os.RemoveAll(b.resultsFolder)
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create results folder", err)
	}

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(b.strategies), len(configs), len(b.dataPaths)); err != nil {
			return errors.Wrap(errors.ErrCodeCallbackFailed, "backtest start callback failed", err)
		}
	}

	writer, err := NewResultWriter(b.log)
	if err != nil {
		return err
	}
	defer writer.Close()

	for strategyIndex, loaded := range b.strategies {
		if callbacks.OnStrategyStart != nil {
			if err := (*callbacks.OnStrategyStart)(strategyIndex, loaded.name, len(b.strategies)); err != nil {
				return errors.Wrap(errors.ErrCodeCallbackFailed, "strategy start callback failed", err)
			}
		}

		for configIndex, cfg := range configs {
			for dataIndex, dataPath := range b.dataPaths {
				if err := ctx.Err(); err != nil {
					return err
				}

				// strategies loaded by name get a fresh instance per run
				if err := b.runOne(ctx, writer, callbacks, loaded.newStrategy(), configIndex, cfg, dataIndex, dataPath); err != nil {
					return err
				}
			}
		}

		if callbacks.OnStrategyEnd != nil {
			(*callbacks.OnStrategyEnd)(strategyIndex, loaded.name)
		}
	}

	return nil
}

func (b *BacktestEngineV1) runOne(
	ctx context.Context,
	writer *ResultWriter,
	callbacks engine.LifecycleCallbacks,
	strat strategy.Strategy,
	configIndex int,
	cfg configItem,
	dataIndex int,
	dataPath string,
) error {
	runID := uuid.New().String()
	resultFolderPath := getResultFolder(cfg.name, dataPath, b, strat.Name())

	b.log.Debug("Running strategy",
		zap.String("run", runID),
		zap.String("strategy", strat.Name()),
		zap.String("config", cfg.name),
		zap.String("data", dataPath),
		zap.String("result", resultFolderPath),
	)

	if err := b.datasource.Initialize(dataPath); err != nil {
		return err
	}

	store, err := b.datasource.Load(b.config.Query())
	if err != nil {
		return err
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, configIndex, cfg.name, dataIndex, dataPath, store.Len()); err != nil {
			return errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err)
		}
	}

	opts := []RunnerOption{WithLogger(b.log), WithRegistry(b.indicatorRegistry)}
	if callbacks.OnProcessData != nil {
		opts = append(opts, WithProgress(*callbacks.OnProcessData))
	}

	runner, err := NewRunner(b.config, opts...)
	if err != nil {
		return err
	}

	result, err := runner.RunWithID(ctx, runID, store, strat, cfg.params)
	if err != nil {
		b.log.Error("Run failed",
			zap.String("run", runID),
			zap.String("strategy", strat.Name()),
			zap.String("data", dataPath),
			zap.Error(err),
		)

		return err
	}

	if err := writer.Record(result); err != nil {
		return err
	}

	if _, err := writer.Write(resultFolderPath, result.Summary); err != nil {
		return err
	}

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(configIndex, cfg.name, dataIndex, dataPath, resultFolderPath)
	}

	return nil
}

// loadConfigs reads the strategy parameter documents from either the config
// paths or the config content.
func (b *BacktestEngineV1) loadConfigs() ([]configItem, error) {
	var configs []configItem

	if len(b.strategyConfigs) > 0 {
		for i, content := range b.strategyConfigs {
			params, err := parseParams(content)
			if err != nil {
				return nil, err
			}

			configs = append(configs, configItem{name: fmt.Sprintf("config_%d", i), params: params})
		}

		return configs, nil
	}

	for _, configPath := range b.strategyConfigPaths {
		content, err := os.ReadFile(configPath)
		if err != nil {
			b.log.Error("Failed to read config",
				zap.String("config", configPath),
				zap.Error(err),
			)

			return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to read config %s", configPath)
		}

		params, err := parseParams(string(content))
		if err != nil {
			return nil, err
		}

		configs = append(configs, configItem{name: configPath, params: params})
	}

	return configs, nil
}

func parseParams(content string) (strategy.Params, error) {
	params := strategy.Params{}
	if err := yaml.Unmarshal([]byte(content), &params); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse strategy parameters", err)
	}

	return params, nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if len(b.strategies) == 0 {
		b.log.Error("No strategies loaded")

		return errors.New(errors.ErrCodeBacktestNoStrategy, "no strategies loaded")
	}

	if len(b.strategyConfigPaths) == 0 && len(b.strategyConfigs) == 0 {
		b.log.Error("No strategy configs loaded")

		return errors.New(errors.ErrCodeStrategyConfigError, "no strategy configs loaded")
	}

	if len(b.dataPaths) == 0 {
		b.log.Error("No data paths loaded")

		return errors.New(errors.ErrCodeBacktestNoData, "no data paths loaded")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestConfigError, "no results folder set")
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoData, "no datasource set")
	}

	if err := b.config.Validate(); err != nil {
		b.log.Error("Engine is not initialized", zap.Error(err))

		return errors.Wrap(errors.ErrCodeBacktestInvalidState, "engine is not initialized", err)
	}

	return nil
}
