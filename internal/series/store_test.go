package series

import (
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	start time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (suite *StoreTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *StoreTestSuite) bars(closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Time:   suite.start.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100,
		}
	}

	return bars
}

func (suite *StoreTestSuite) TestNewStoreErrors() {
	duplicate := suite.bars(10, 11, 12)
	duplicate[2].Time = duplicate[1].Time

	backwards := suite.bars(10, 11, 12)
	backwards[2].Time = suite.start.Add(-time.Minute)

	missingTime := suite.bars(10, 11)
	missingTime[1].Time = time.Time{}

	tests := []struct {
		name    string
		bars    []types.Bar
		columns map[string][]float64
		code    errors.ErrorCode
	}{
		{"empty", nil, nil, errors.ErrCodeDataEmpty},
		{"duplicate timestamp", duplicate, nil, errors.ErrCodeDataDuplicate},
		{"non monotonic", backwards, nil, errors.ErrCodeDataNonMonotonic},
		{"missing timestamp", missingTime, nil, errors.ErrCodeDataMissingValue},
		{"short column", suite.bars(10, 11), map[string][]float64{"funding": {0.1}}, errors.ErrCodeDataColumnLength},
		{"column shadows field", suite.bars(10, 11), map[string][]float64{"close": {1, 2}}, errors.ErrCodeDataMissingColumn},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			store, err := NewStore(tc.bars, tc.columns)
			suite.Nil(store)
			suite.Error(err)
			suite.Equal(tc.code, errors.GetCode(err))
			suite.True(errors.IsDataError(err))
		})
	}
}

func (suite *StoreTestSuite) TestValidate() {
	tests := []struct {
		name   string
		mutate func(bar *types.Bar)
		code   errors.ErrorCode
	}{
		{"nan close", func(bar *types.Bar) { bar.Close = math.NaN() }, errors.ErrCodeDataMissingValue},
		{"infinite volume", func(bar *types.Bar) { bar.Volume = math.Inf(1) }, errors.ErrCodeDataMissingValue},
		{"zero price", func(bar *types.Bar) { bar.Open = 0 }, errors.ErrCodeDataInvalidBar},
		{"negative volume", func(bar *types.Bar) { bar.Volume = -1 }, errors.ErrCodeDataInvalidBar},
		{"high below close", func(bar *types.Bar) { bar.High = bar.Close - 0.5 }, errors.ErrCodeDataInvalidBar},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			bars := suite.bars(10, 11, 12)
			tc.mutate(&bars[1])

			store, err := NewStore(bars, nil)
			suite.Require().NoError(err)
			suite.Equal(tc.code, errors.GetCode(store.Validate()))
		})
	}

	store, err := NewStore(suite.bars(10, 11, 12), nil)
	suite.Require().NoError(err)
	suite.NoError(store.Validate())
}

func (suite *StoreTestSuite) TestStoreIsImmutable() {
	bars := suite.bars(10, 11, 12)
	funding := []float64{0.1, 0.2, 0.3}

	store, err := NewStore(bars, map[string][]float64{"funding": funding})
	suite.Require().NoError(err)

	bars[0].Close = 999
	funding[0] = 999

	bar, err := store.Bar(0)
	suite.Require().NoError(err)
	suite.Equal(10.0, bar.Close)

	column, err := store.Column("funding")
	suite.Require().NoError(err)
	suite.Equal([]float64{0.1, 0.2, 0.3}, column)

	column[1] = 999
	value, err := store.ColumnValue("funding", 1)
	suite.Require().NoError(err)
	suite.Equal(0.2, value)
}

func (suite *StoreTestSuite) TestAccessors() {
	store, err := NewStore(suite.bars(10, 11, 12, 13, 14), map[string][]float64{
		"funding": {1, 2, 3, 4, 5},
		"vix":     {20, 21, 22, 23, 24},
	})
	suite.Require().NoError(err)

	suite.Equal(5, store.Len())
	suite.Equal([]string{"funding", "vix"}, store.Columns())
	suite.True(store.HasColumn("close"))
	suite.True(store.HasColumn("vix"))
	suite.False(store.HasColumn("oi"))

	window, err := store.Window(3, 2)
	suite.Require().NoError(err)
	suite.Len(window, 2)
	suite.Equal(12.0, window[0].Close)
	suite.Equal(13.0, window[1].Close)

	clipped, err := store.Window(1, 10)
	suite.Require().NoError(err)
	suite.Len(clipped, 2)

	_, err = store.Bar(5)
	suite.True(errors.HasCode(err, errors.ErrCodeDataOutOfRange))

	index, ok := store.IndexOf(suite.start.Add(2 * time.Minute))
	suite.True(ok)
	suite.Equal(2, index)

	_, ok = store.IndexOf(suite.start.Add(90 * time.Second))
	suite.False(ok)

	closes, err := store.Column("close")
	suite.Require().NoError(err)
	suite.Equal([]float64{10, 11, 12, 13, 14}, closes)

	_, err = store.Column("oi")
	suite.True(errors.HasCode(err, errors.ErrCodeDataMissingColumn))
}

func (suite *StoreTestSuite) TestSliceAndBetween() {
	store, err := NewStore(suite.bars(10, 11, 12, 13, 14), map[string][]float64{"funding": {1, 2, 3, 4, 5}})
	suite.Require().NoError(err)

	prefix, err := store.Slice(3)
	suite.Require().NoError(err)
	suite.Equal(3, prefix.Len())

	_, err = store.Slice(6)
	suite.Error(err)

	ranged, err := store.Between(optional.Some(suite.start.Add(time.Minute)), optional.Some(suite.start.Add(3*time.Minute)))
	suite.Require().NoError(err)
	suite.Equal(3, ranged.Len())

	first, err := ranged.Bar(0)
	suite.Require().NoError(err)
	suite.Equal(11.0, first.Close)

	funding, err := ranged.ColumnValue("funding", 0)
	suite.Require().NoError(err)
	suite.Equal(2.0, funding)

	index, ok := ranged.IndexOf(suite.start.Add(3 * time.Minute))
	suite.True(ok)
	suite.Equal(2, index)

	all, err := store.Between(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Same(store, all)

	_, err = store.Between(optional.Some(suite.start.Add(time.Hour)), optional.None[time.Time]())
	suite.True(errors.HasCode(err, errors.ErrCodeDataEmpty))
}
