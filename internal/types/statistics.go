package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquityPoint is the account state recorded after a bar was fully processed.
type EquityPoint struct {
	Bar  int       `yaml:"bar" json:"bar" csv:"bar"`
	Time time.Time `yaml:"time" json:"time" csv:"time"`
	Cash float64   `yaml:"cash" json:"cash" csv:"cash"`
	// PositionSize is signed.
	PositionSize float64 `yaml:"position_size" json:"position_size" csv:"position_size"`
	Close        float64 `yaml:"close" json:"close" csv:"close"`
	// Equity is exactly Cash + PositionSize * Close.
	Equity float64 `yaml:"equity" json:"equity" csv:"equity"`
}

type TradeHoldingTime struct {
	// Minimum holding time of a trade in bars
	Min int `yaml:"min" json:"min"`
	// Maximum holding time of a trade in bars
	Max int `yaml:"max" json:"max"`
	// Average holding time of a trade in bars
	Avg float64 `yaml:"avg" json:"avg"`
}

type TradeResult struct {
	// Count of closed trades, partial fragments included.
	NumberOfTrades int `yaml:"number_of_trades" json:"number_of_trades"`
	// Count of trades with positive net pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades" json:"number_of_winning_trades"`
	// Count of trades with negative net pnl.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades" json:"number_of_losing_trades"`
	// Win rate in percent.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// Best trade net return in percent.
	BestTradePct float64 `yaml:"best_trade_pct" json:"best_trade_pct"`
	// Worst trade net return in percent.
	WorstTradePct float64 `yaml:"worst_trade_pct" json:"worst_trade_pct"`
	// Average trade net return in percent.
	AvgTradePct float64 `yaml:"avg_trade_pct" json:"avg_trade_pct"`
	// Largest net win in cash.
	LargestWin float64 `yaml:"largest_win" json:"largest_win"`
	// Largest net loss in cash (a negative number or zero).
	LargestLoss float64 `yaml:"largest_loss" json:"largest_loss"`
	// Gross profits divided by gross losses of net pnl. Zero without losses.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	// Average net pnl per trade.
	Expectancy float64 `yaml:"expectancy" json:"expectancy"`
}

// RunSummary is the result of one backtest run.
type RunSummary struct {
	ID         string    `yaml:"id" json:"id"`
	Strategy   string    `yaml:"strategy" json:"strategy"`
	StartTime  time.Time `yaml:"start_time" json:"start_time"`
	EndTime    time.Time `yaml:"end_time" json:"end_time"`
	Bars       int       `yaml:"bars" json:"bars"`
	WarmUpBars int       `yaml:"warm_up_bars" json:"warm_up_bars"`

	// EngineVersion is the version of the engine that produced the run.
	EngineVersion string `yaml:"engine_version,omitempty" json:"engine_version,omitempty"`

	InitialCash float64 `yaml:"initial_cash" json:"initial_cash"`
	FinalEquity float64 `yaml:"final_equity" json:"final_equity"`
	PeakEquity  float64 `yaml:"peak_equity" json:"peak_equity"`
	// Total return of the equity curve in percent.
	TotalReturnPct float64 `yaml:"total_return_pct" json:"total_return_pct"`
	// Buy and hold return over the same window in percent.
	BuyAndHoldReturnPct float64 `yaml:"buy_and_hold_return_pct" json:"buy_and_hold_return_pct"`
	// Maximum peak to trough equity drawdown in percent (zero or negative).
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
	// Share of bars with an open position in percent.
	ExposureTimePct float64 `yaml:"exposure_time_pct" json:"exposure_time_pct"`
	TotalCommission float64 `yaml:"total_commission" json:"total_commission"`

	TradeResult      TradeResult      `yaml:"trade_result" json:"trade_result"`
	TradeHoldingTime TradeHoldingTime `yaml:"trade_holding_time" json:"trade_holding_time"`

	// Counts of non-fatal outcomes surfaced through the event stream.
	RejectedOrders int `yaml:"rejected_orders" json:"rejected_orders"`
	SkippedBars    int `yaml:"skipped_bars" json:"skipped_bars"`

	TradesFilePath string `yaml:"trades_file_path,omitempty" json:"trades_file_path,omitempty"`
	EquityFilePath string `yaml:"equity_file_path,omitempty" json:"equity_file_path,omitempty"`
	EventsFilePath string `yaml:"events_file_path,omitempty" json:"events_file_path,omitempty"`
}

func WriteRunSummary(path string, summary RunSummary) error {
	// Marshal the struct to YAML
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary to YAML: %w", err)
	}

	// Write the YAML data to the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run summary to file: %w", err)
	}

	return nil
}

// ReadRunSummary loads a summary previously written by WriteRunSummary.
func ReadRunSummary(path string) (RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to read run summary: %w", err)
	}

	var summary RunSummary
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return RunSummary{}, fmt.Errorf("failed to parse run summary: %w", err)
	}

	return summary, nil
}
