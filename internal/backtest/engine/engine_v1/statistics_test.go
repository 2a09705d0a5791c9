package engine

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/stretchr/testify/suite"
)

type StatisticsTestSuite struct {
	suite.Suite
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func point(bar int, cash, size, closePrice float64) types.EquityPoint {
	return types.EquityPoint{
		Bar:          bar,
		Time:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(bar) * time.Hour),
		Cash:         cash,
		PositionSize: size,
		Close:        closePrice,
		Equity:       cash + size*closePrice,
	}
}

func (suite *StatisticsTestSuite) TestCalculateTradeResult() {
	trades := []types.Trade{
		{Size: 10, EntryPrice: 100, PnL: 100, Commission: 0, EntryBar: 0, ExitBar: 4},
		{Size: 10, EntryPrice: 100, PnL: -50, Commission: 0, EntryBar: 5, ExitBar: 6},
		{Size: 10, EntryPrice: 100, PnL: 2, Commission: 2, EntryBar: 7, ExitBar: 10},
	}

	result := calculateTradeResult(trades)

	suite.Equal(3, result.NumberOfTrades)
	suite.Equal(1, result.NumberOfWinningTrades)
	suite.Equal(1, result.NumberOfLosingTrades)
	suite.InDelta(100.0/3, result.WinRate, 1e-9)
	suite.InDelta(10.0, result.BestTradePct, 1e-9)
	suite.InDelta(-5.0, result.WorstTradePct, 1e-9)
	suite.InDelta(5.0/3, result.AvgTradePct, 1e-9)
	suite.Equal(100.0, result.LargestWin)
	suite.Equal(-50.0, result.LargestLoss)
	suite.InDelta(2.0, result.ProfitFactor, 1e-9)
	suite.InDelta(50.0/3, result.Expectancy, 1e-9)
}

func (suite *StatisticsTestSuite) TestCalculateTradeResultWithoutLosses() {
	result := calculateTradeResult([]types.Trade{{Size: 1, EntryPrice: 10, PnL: 1}})

	suite.Equal(100.0, result.WinRate)
	suite.Equal(0.0, result.ProfitFactor)
	suite.Equal(types.TradeResult{}, calculateTradeResult(nil))
}

func (suite *StatisticsTestSuite) TestCalculateTradeHoldingTime() {
	holding := calculateTradeHoldingTime([]types.Trade{
		{EntryBar: 0, ExitBar: 4},
		{EntryBar: 5, ExitBar: 6},
		{EntryBar: 7, ExitBar: 10},
	})

	suite.Equal(1, holding.Min)
	suite.Equal(4, holding.Max)
	suite.InDelta(8.0/3, holding.Avg, 1e-9)
	suite.Equal(types.TradeHoldingTime{}, calculateTradeHoldingTime(nil))
}

func (suite *StatisticsTestSuite) TestCalculateSummary() {
	equity := []types.EquityPoint{
		point(0, 10000, 0, 100),
		point(1, 0, 100, 110),
		point(2, 0, 100, 99),
		point(3, 10500, 0, 105),
	}
	trades := []types.Trade{{Size: 100, EntryPrice: 100, ExitPrice: 105, PnL: 500, Commission: 1.5, EntryBar: 1, ExitBar: 3}}

	summary := calculateSummary(10000, equity, trades)

	suite.Equal(4, summary.Bars)
	suite.Equal(equity[0].Time, summary.StartTime)
	suite.Equal(equity[3].Time, summary.EndTime)
	suite.Equal(10500.0, summary.FinalEquity)
	suite.Equal(11000.0, summary.PeakEquity)
	suite.InDelta(5.0, summary.TotalReturnPct, 1e-9)
	suite.InDelta(5.0, summary.BuyAndHoldReturnPct, 1e-9)
	suite.InDelta(-10.0, summary.MaxDrawdownPct, 1e-9)
	suite.InDelta(50.0, summary.ExposureTimePct, 1e-9)
	suite.InDelta(1.5, summary.TotalCommission, 1e-9)
	suite.Equal(1, summary.TradeResult.NumberOfWinningTrades)
}

func (suite *StatisticsTestSuite) TestCalculateSummaryWithoutBars() {
	summary := calculateSummary(5000, nil, nil)

	suite.Equal(5000.0, summary.FinalEquity)
	suite.Equal(0.0, summary.TotalReturnPct)
	suite.Equal(0.0, summary.MaxDrawdownPct)
	suite.Equal(0.0, summary.ExposureTimePct)
}
