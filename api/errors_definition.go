package api

import (
	"fmt"
	"net/http"
)

// Error codes in the 40001-49999 range are the client's fault and map to
// 4xx HTTP statuses; codes 50001-59999 are the server's fault and map to
// 5xx. Never change a shipped code; append new ones after the last 4XXX or
// 5XXX.
var (
	ErrValidate               = Error{Code: 40001, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("request validation failed")}
	ErrRepeatedTransaction    = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("repeated transaction")}
	ErrChainIdNotFound        = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("chain id not found in relayer config")}
	ErrAccountNotFound        = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("account not found")}
	ErrUnsupportedTransaction = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("transaction not supported")}
	ErrTransactionNotFound    = Error{Code: 40006, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("transaction not found")}
	ErrTransactionFailed      = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("transaction failed")}
	ErrMalformedBody          = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}

	ErrGetGasPriceFailed      = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("get gas price failed")}
	ErrGetMinimumGasFeeFailed = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("get minimum gas fee failed")}
	ErrDatabase               = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("database error")}
	ErrTransactionChannel     = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("transaction channel error")}
	ErrUnknown                = Error{Code: 50005, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("unknown error")}
)
