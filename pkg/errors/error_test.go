package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeDataDuplicate, "duplicate timestamp at bar %d", 3)
	suite.Equal(ErrCodeDataDuplicate, err.Code)
	suite.Equal("duplicate timestamp at bar 3", err.Message)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeDataQueryFailed, cause, "query failed for %s", "bars.csv")
	suite.Equal(ErrCodeDataQueryFailed, err.Code)
	suite.Equal("query failed for bars.csv", err.Message)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())

	wrapped := Wrap(ErrCodeDataEmpty, "no bars", errors.New("empty file"))
	suite.Equal("[200] no bars: empty file", wrapped.Error())
}

func (suite *ErrorTestSuite) TestGetCodeThroughFmtWrap() {
	inner := New(ErrCodeInsufficientCash, "not enough cash")
	err := fmt.Errorf("place order: %w", inner)
	suite.Equal(ErrCodeInsufficientCash, GetCode(err))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))
}

func (suite *ErrorTestSuite) TestHasCodeWalksChain() {
	inner := LookaheadError("indicator rsi", 10, 5)
	outer := Wrap(ErrCodeStrategyRuntimeError, "strategy failed", inner)

	suite.True(HasCode(outer, ErrCodeStrategyRuntimeError))
	suite.True(HasCode(outer, ErrCodeLookaheadViolation))
	suite.True(IsLookaheadViolation(outer))
	suite.False(HasCode(outer, ErrCodeInvalidRisk))
	suite.False(HasCode(nil, ErrCodeInvalidRisk))
}

func (suite *ErrorTestSuite) TestCategoryPredicates() {
	tests := []struct {
		name        string
		err         error
		data        bool
		recoverable bool
	}{
		{"nil", nil, false, true},
		{"data error", New(ErrCodeDataNonMonotonic, "x"), true, false},
		{"invalid risk", New(ErrCodeInvalidRisk, "x"), false, true},
		{"insufficient cash", New(ErrCodeInsufficientCash, "x"), false, true},
		{"not ready", New(ErrCodeIndicatorNotReady, "x"), false, true},
		{"look-ahead", LookaheadError("bar", 2, 1), false, false},
		{"strategy", New(ErrCodeStrategyRuntimeError, "x"), false, false},
		{"plain", errors.New("boom"), false, false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.data, IsDataError(tc.err))
			suite.Equal(tc.recoverable, IsRecoverable(tc.err))
		})
	}

	suite.True(IsInvalidRisk(New(ErrCodeInvalidRisk, "x")))
	suite.True(IsInsufficientCash(New(ErrCodeInsufficientCash, "x")))
	suite.True(IsIndicatorNotReady(New(ErrCodeIndicatorNotReady, "x")))
}

func (suite *ErrorTestSuite) TestLookaheadErrorMessage() {
	err := LookaheadError("bar", 7, 4)
	suite.Equal(ErrCodeLookaheadViolation, err.Code)
	suite.Contains(err.Error(), "bar 7")
	suite.Contains(err.Error(), "bar 4")
}
