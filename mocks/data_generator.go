package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// DataGenerator generates synthetic bars for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how random walk bars are generated.
type GeneratorConfig struct {
	// StartTime is the timestamp of the first bar
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per bar)
	Volatility float64
	// Trend is the total drift spread over the series (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002, // 0.2% per bar
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates bars following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a standard normal sample
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := 0.0
		if config.Count > 0 {
			drift = config.Trend / float64(config.Count)
		}

		closePrice := open * (1 + config.Volatility*z + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension
		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(closePrice, 4),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = bars[i].Close
		currentTime = currentTime.Add(config.Interval)
	}

	return bars
}

// Dip is a scripted sell-off inside a ramp.
type Dip struct {
	// At is the index of the first falling bar.
	At int
	// Bars is how many consecutive bars fall.
	Bars int
	// Drop is the close-to-close decline of every falling bar.
	Drop float64
}

// RampConfig describes a deterministic, steadily rising series.
type RampConfig struct {
	Count      int
	StartTime  time.Time
	Interval   time.Duration
	StartPrice float64
	// Step is the close-to-close rise of every bar outside a dip.
	Step float64
	// Spread is the distance of high and low from the body of the bar.
	Spread float64
	Volume float64
	Dips   []Dip
}

// DefaultRampConfig is a 300 bar, 15 minute ramp from 100 rising 0.1 per bar
// with a two bar dip around bar 150.
func DefaultRampConfig() RampConfig {
	return RampConfig{
		Count:      300,
		StartTime:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Interval:   15 * time.Minute,
		StartPrice: 100,
		Step:       0.1,
		Spread:     0.05,
		Volume:     1000,
		Dips:       []Dip{{At: 150, Bars: 2, Drop: 2.0}},
	}
}

// Ramp builds bars whose open equals the previous close. Without dips the
// closes rise by exactly Step per bar.
func Ramp(config RampConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	prevClose := config.StartPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		change := config.Step
		if i == 0 {
			change = 0
		}

		for _, dip := range config.Dips {
			if i >= dip.At && i < dip.At+dip.Bars {
				change = -dip.Drop
			}
		}

		open := prevClose
		closePrice := roundToDecimals(prevClose+change, 6)

		bars[i] = types.Bar{
			Time:   currentTime,
			Open:   open,
			High:   roundToDecimals(math.Max(open, closePrice)+config.Spread, 6),
			Low:    roundToDecimals(math.Min(open, closePrice)-config.Spread, 6),
			Close:  closePrice,
			Volume: config.Volume,
		}

		prevClose = closePrice
		currentTime = currentTime.Add(config.Interval)
	}

	return bars
}

// FromCloses builds bars from a list of closes. Each open is the previous close
// and high/low extend spread beyond the body.
func FromCloses(start time.Time, interval time.Duration, spread float64, closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))

	for i, closePrice := range closes {
		open := closePrice
		if i > 0 {
			open = closes[i-1]
		}

		bars[i] = types.Bar{
			Time:   start.Add(time.Duration(i) * interval),
			Open:   open,
			High:   math.Max(open, closePrice) + spread,
			Low:    math.Min(open, closePrice) - spread,
			Close:  closePrice,
			Volume: 1000,
		}
	}

	return bars
}

// Generate10K is a convenience function to generate 10,000 bars
// with default settings for benchmarking.
func Generate10K() []types.Bar {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 10000

	return gen.Generate(config)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
