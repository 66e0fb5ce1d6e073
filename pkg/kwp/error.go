package kwp

import "fmt"

// Negative response codes.
const (
	GENERAL_REJECT                                     = 0x10
	SERVICE_NOT_SUPPORTED                              = 0x11
	SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT        = 0x12
	BUSY_REPEAT_REQUEST                                = 0x21
	CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR   = 0x22
	REQUEST_OUT_OF_RANGE                               = 0x31
	SECURITY_ACCESS_DENIED_OR_REQUESTED                = 0x33
	UPLOAD_NOT_ACCEPTED                                = 0x50
	CANNOT_UPLOAD_FROM_SPECIFIED_ADDRESS               = 0x52
	CANNOT_UPLOAD_NUMBER_OF_BYTES_REQUESTED            = 0x53
	TRANSFER_ABORTED                                   = 0x72
	SERVICE_NOT_SUPPORTED_IN_ACTIVE_DIAGNOSTIC_SESSION = 0x80
)

// Error is a translated negative response from the ECU.
type Error struct {
	Code    byte
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (0x%02X)", e.Message, e.Code)
}

var errorMessages = map[byte]string{
	GENERAL_REJECT:                                     "general reject",
	SERVICE_NOT_SUPPORTED:                              "service not supported",
	SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT:        "sub-function not supported or invalid format",
	BUSY_REPEAT_REQUEST:                                "busy, repeat request",
	CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR:   "conditions not correct or request sequence error",
	REQUEST_OUT_OF_RANGE:                               "request out of range or session dropped",
	SECURITY_ACCESS_DENIED_OR_REQUESTED:                "security access denied",
	UPLOAD_NOT_ACCEPTED:                                "upload (ECU -> PC) not accepted",
	CANNOT_UPLOAD_FROM_SPECIFIED_ADDRESS:               "unable to upload (ECU -> PC) from specified address",
	CANNOT_UPLOAD_NUMBER_OF_BYTES_REQUESTED:            "unable to upload (ECU -> PC) number of bytes requested",
	TRANSFER_ABORTED:                                   "transfer aborted",
	SERVICE_NOT_SUPPORTED_IN_ACTIVE_DIAGNOSTIC_SESSION: "service not supported in active diagnostic session",
}

// TranslateErrorCode turns a negative response code into an *Error.
func TranslateErrorCode(code byte) error {
	if msg, ok := errorMessages[code]; ok {
		return &Error{Code: code, Message: msg}
	}
	return &Error{Code: code, Message: "unknown negative response"}
}
