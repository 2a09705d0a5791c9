package types

type IndicatorKind string

const (
	IndicatorKindSMA            IndicatorKind = "sma"
	IndicatorKindEMA            IndicatorKind = "ema"
	IndicatorKindRSI            IndicatorKind = "rsi"
	IndicatorKindATR            IndicatorKind = "atr"
	IndicatorKindStdDev         IndicatorKind = "stddev"
	IndicatorKindBollingerBands IndicatorKind = "bbands"
	IndicatorKindMACD           IndicatorKind = "macd"
	IndicatorKindHighest        IndicatorKind = "highest"
	IndicatorKindLowest         IndicatorKind = "lowest"
	IndicatorKindMedian         IndicatorKind = "median"
	IndicatorKindROC            IndicatorKind = "roc"
)
