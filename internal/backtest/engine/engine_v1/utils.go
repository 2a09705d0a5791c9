package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// getResultFolder lays results out as
// <results>/<strategy>/<config>[/<start>_<end>]/<data>[_<symbol>][_<interval>].
func getResultFolder(configPath string, dataPath string, b *BacktestEngineV1, strategyName string) string {
	strategyFolder := filepath.Join(b.resultsFolder, strategyName)
	configFolder := filepath.Join(strategyFolder, strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath)))

	var dataFolder string

	if b.config.StartTime.IsSome() || b.config.EndTime.IsSome() {
		startTimeStr := "all"
		endTimeStr := "all"

		if b.config.StartTime.IsSome() {
			startTimeStr = b.config.StartTime.Unwrap().Format("20060102")
		}

		if b.config.EndTime.IsSome() {
			endTimeStr = b.config.EndTime.Unwrap().Format("20060102")
		}

		dataFolder = filepath.Join(configFolder, fmt.Sprintf("%s_%s", startTimeStr, endTimeStr))
	} else {
		dataFolder = configFolder
	}

	dataFileName := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))

	if b.config.Symbol != "" {
		dataFileName += "_" + b.config.Symbol
	}

	if b.config.Interval != "" {
		dataFileName += "_" + string(b.config.Interval)
	}

	return filepath.Join(dataFolder, dataFileName)
}
