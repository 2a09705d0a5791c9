package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidIntent        ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeMissingParameter     ErrorCode = 104
	ErrCodeInvalidOutputs       ErrorCode = 105

	// Data errors (200-299). All of them are fatal for a run.
	ErrCodeDataEmpty          ErrorCode = 200
	ErrCodeDataNonMonotonic   ErrorCode = 201
	ErrCodeDataDuplicate      ErrorCode = 202
	ErrCodeDataMissingValue   ErrorCode = 203
	ErrCodeDataInvalidBar     ErrorCode = 204
	ErrCodeDataMissingColumn  ErrorCode = 205
	ErrCodeDataColumnLength   ErrorCode = 206
	ErrCodeDataOutOfRange     ErrorCode = 207
	ErrCodeDataSourceFailed   ErrorCode = 208
	ErrCodeDataQueryFailed    ErrorCode = 209
	ErrCodeDataUnsupportedExt ErrorCode = 210

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302
	ErrCodeIndicatorNotReady      ErrorCode = 303
	ErrCodeIndicatorSealed        ErrorCode = 304
	ErrCodeIndicatorNotComputed   ErrorCode = 305

	// Look-ahead violations (350-359). Always fatal.
	ErrCodeLookaheadViolation ErrorCode = 350

	// Strategy errors (400-499)
	ErrCodeStrategyNotLoaded    ErrorCode = 400
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeStrategyNotFound     ErrorCode = 403

	// Trading errors (500-599). Recoverable: the order is skipped.
	ErrCodeInvalidRisk       ErrorCode = 500
	ErrCodeInsufficientCash  ErrorCode = 501
	ErrCodeOrderRejected     ErrorCode = 502
	ErrCodeNoPosition        ErrorCode = 503
	ErrCodeInvalidOrderPrice ErrorCode = 504

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError  ErrorCode = 600
	ErrCodeBacktestNoStrategy   ErrorCode = 601
	ErrCodeBacktestNoData       ErrorCode = 602
	ErrCodeBacktestAlreadyRun   ErrorCode = 603
	ErrCodeBacktestWriteFailed  ErrorCode = 604
	ErrCodeBacktestInitFailed   ErrorCode = 605
	ErrCodeBacktestSweepFailed  ErrorCode = 606
	ErrCodeBacktestInvalidState ErrorCode = 607

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
