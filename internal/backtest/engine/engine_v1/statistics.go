package engine

import (
	"math"

	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/shopspring/decimal"
)

// calculateSummary derives the run statistics from the equity curve and the closed trades.
func calculateSummary(initialCash float64, equity []types.EquityPoint, trades []types.Trade) types.RunSummary {
	summary := types.RunSummary{
		InitialCash: initialCash,
		FinalEquity: initialCash,
		PeakEquity:  initialCash,
		Bars:        len(equity),
	}

	if len(equity) > 0 {
		first := equity[0]
		last := equity[len(equity)-1]

		summary.StartTime = first.Time
		summary.EndTime = last.Time
		summary.FinalEquity = last.Equity
		summary.BuyAndHoldReturnPct = percentChange(first.Close, last.Close)
	}

	summary.TotalReturnPct = percentChange(initialCash, summary.FinalEquity)
	summary.PeakEquity, summary.MaxDrawdownPct = drawdown(initialCash, equity)
	summary.ExposureTimePct = exposure(equity)
	summary.TradeResult = calculateTradeResult(trades)
	summary.TradeHoldingTime = calculateTradeHoldingTime(trades)

	total := decimal.Zero
	for _, trade := range trades {
		total = total.Add(decimal.NewFromFloat(trade.Commission))
	}

	summary.TotalCommission = total.InexactFloat64()

	return summary
}

func percentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}

	return (to - from) / from * 100
}

// drawdown returns the equity peak and the deepest peak to trough decline in percent.
func drawdown(initialCash float64, equity []types.EquityPoint) (float64, float64) {
	peak := initialCash
	maxDrawdown := 0.0

	for _, point := range equity {
		peak = math.Max(peak, point.Equity)
		if peak <= 0 {
			continue
		}

		maxDrawdown = math.Min(maxDrawdown, (point.Equity/peak-1)*100)
	}

	return peak, maxDrawdown
}

func exposure(equity []types.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}

	exposed := 0

	for _, point := range equity {
		if point.PositionSize != 0 {
			exposed++
		}
	}

	return float64(exposed) / float64(len(equity)) * 100
}

func calculateTradeResult(trades []types.Trade) types.TradeResult {
	result := types.TradeResult{NumberOfTrades: len(trades)}
	if len(trades) == 0 {
		return result
	}

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	totalReturn := 0.0

	result.BestTradePct = math.Inf(-1)
	result.WorstTradePct = math.Inf(1)

	for _, trade := range trades {
		net := trade.NetPnL()
		returnPct := trade.ReturnPct()

		switch {
		case net > 0:
			result.NumberOfWinningTrades++
			grossProfit = grossProfit.Add(decimal.NewFromFloat(net))
		case net < 0:
			result.NumberOfLosingTrades++
			grossLoss = grossLoss.Add(decimal.NewFromFloat(-net))
		}

		result.BestTradePct = math.Max(result.BestTradePct, returnPct)
		result.WorstTradePct = math.Min(result.WorstTradePct, returnPct)
		result.LargestWin = math.Max(result.LargestWin, net)
		result.LargestLoss = math.Min(result.LargestLoss, net)
		totalReturn += returnPct
	}

	count := float64(len(trades))
	result.WinRate = float64(result.NumberOfWinningTrades) / count * 100
	result.AvgTradePct = totalReturn / count
	result.Expectancy = grossProfit.Sub(grossLoss).Div(decimal.NewFromInt(int64(len(trades)))).InexactFloat64()

	if grossLoss.IsPositive() {
		result.ProfitFactor = grossProfit.Div(grossLoss).InexactFloat64()
	}

	return result
}

func calculateTradeHoldingTime(trades []types.Trade) types.TradeHoldingTime {
	if len(trades) == 0 {
		return types.TradeHoldingTime{}
	}

	holding := types.TradeHoldingTime{Min: math.MaxInt, Max: 0}
	total := 0

	for _, trade := range trades {
		bars := trade.HoldingBars()
		holding.Min = min(holding.Min, bars)
		holding.Max = max(holding.Max, bars)
		total += bars
	}

	holding.Avg = float64(total) / float64(len(trades))

	return holding
}
