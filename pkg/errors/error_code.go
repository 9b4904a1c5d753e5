package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199). A run is never created when one of
	// these is returned.
	ErrCodeConfigValidation   ErrorCode = 100
	ErrCodeInvalidFillModel   ErrorCode = 101
	ErrCodeInvalidSlippage    ErrorCode = 102
	ErrCodeInvalidCommission  ErrorCode = 103
	ErrCodeInvalidSizing      ErrorCode = 104
	ErrCodeInvalidRiskLimit   ErrorCode = 105
	ErrCodeInvalidTimeRange   ErrorCode = 106
	ErrCodeInvalidTieBreak    ErrorCode = 107
	ErrCodeInvalidFunding     ErrorCode = 108
	ErrCodeMissingParameter   ErrorCode = 109
	ErrCodeInvalidParamSchema ErrorCode = 110
	ErrCodeVersionMismatch    ErrorCode = 111

	// Data errors (200-299). A run fails before any bar is recorded.
	ErrCodeDataUnavailable     ErrorCode = 200
	ErrCodeInsufficientBars    ErrorCode = 201
	ErrCodeBarOutOfRange       ErrorCode = 202
	ErrCodeDataSourceFailed    ErrorCode = 203
	ErrCodeDataSourceNotLoaded ErrorCode = 204

	// Order errors (500-599). The offending intent is rejected and the run
	// continues.
	ErrCodeInvalidOrder      ErrorCode = 500
	ErrCodeInvalidTransition ErrorCode = 501
	ErrCodeOrderNotFound     ErrorCode = 502
	ErrCodeInvalidQuantity   ErrorCode = 503
	ErrCodeInvalidPrice      ErrorCode = 504

	// Engine errors (600-699)
	ErrCodeRunAlreadyStarted ErrorCode = 600
	ErrCodeNoStrategy        ErrorCode = 601
	ErrCodeRecorderFailed    ErrorCode = 602
)
