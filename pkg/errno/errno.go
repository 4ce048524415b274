package errno

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	default:
		return InternalServerError.Code, err.Error()
	}
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
)

// Business Errors (20000+)
var (
	ErrUnsupportedNetwork   = Errno{Code: 20101, Message: "Unsupported network"}
	ErrInsufficientBalance  = Errno{Code: 20201, Message: "Insufficient balance"}
	ErrInvalidAddress       = Errno{Code: 20301, Message: "Invalid destination address for network"}
	ErrAmountTooLarge       = Errno{Code: 20302, Message: "Amount exceeds per-transaction limit"}
	ErrDailyLimitExceeded   = Errno{Code: 20303, Message: "Amount exceeds daily withdrawal limit"}
	ErrInvalidAmount        = Errno{Code: 20304, Message: "Amount must be positive"}
	ErrWithdrawalNotFound   = Errno{Code: 20305, Message: "Withdrawal not found"}
	ErrInvalidStateChange   = Errno{Code: 20306, Message: "Withdrawal state does not allow this action"}
	ErrMasterSeedMissing    = Errno{Code: 20401, Message: "Master seed is not configured"}
	ErrHotWalletUnset       = Errno{Code: 20402, Message: "Hot wallet address is not configured for network"}
)
