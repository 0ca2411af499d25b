package rpc

import "errors"

// RpcError is an error reported by a ledger node, or returned by this
// process's own JSON-RPC surface.
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Type        string `json:"type"`
	Message     string `json:"error_message,omitempty"`
}

func (e RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// Error codes. The negative values are the JSON-RPC 2.0 reserved codes.
const (
	RpcUNKNOWN          = -1
	RpcJSON_RPC         = -32600
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603
	RpcPARSE_ERROR      = -32700

	RpcNO_NETWORK    = 5
	RpcACT_NOT_FOUND = 19
	RpcTXN_NOT_FOUND = 24
	RpcNO_CREDENTIAL = 60
)

func NewRpcError(code int, error, errorType, message string) *RpcError {
	return &RpcError{
		Code:        code,
		ErrorString: error,
		Type:        errorType,
		Message:     message,
	}
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", "invalidParams", message)
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", "unknownCmd", "Unknown method: "+method)
}

func RpcErrorParse(message string) *RpcError {
	return NewRpcError(RpcPARSE_ERROR, "parseError", "parseError", message)
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", "internal", message)
}

// IsNotFound reports whether err is a node error for a missing account or
// transaction.
func IsNotFound(err error) bool {
	var e *RpcError
	if !errors.As(err, &e) {
		return false
	}
	return e.ErrorString == "actNotFound" || e.ErrorString == "txnNotFound"
}
