package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/operation"
	"github.com/LeJamon/goRLUSD/internal/rpc"
)

// maxBody caps the size of a JSON-RPC request body.
const maxBody = 1 << 20

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type errorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type response struct {
	JSONRPC string       `json:"jsonrpc"`
	Result  any          `json:"result,omitempty"`
	Error   *errorObject `json:"error,omitempty"`
	ID      any          `json:"id"`
}

// batch is the object form carrying several items.
type batch struct {
	Items          []operation.Params `json:"items"`
	ContinueOnFail bool               `json:"continueOnFail"`
}

// call is a decoded method invocation. single marks a lone object param,
// whose result is returned unwrapped.
type call struct {
	items          []operation.Params
	continueOnFail bool
	single         bool
}

// decodeParams accepts no params, one object, an array of objects, or
// {"items": [...], "continueOnFail": bool}.
func decodeParams(raw json.RawMessage) (call, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return call{items: []operation.Params{{}}, single: true}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []operation.Params
		if err := json.Unmarshal(raw, &items); err != nil {
			return call{}, fmt.Errorf("params array must hold objects: %w", err)
		}
		if len(items) == 0 {
			return call{}, errors.New("params array is empty")
		}
		// a one-element array is the single form
		return call{items: items, single: len(items) == 1}, nil
	}

	var obj operation.Params
	if err := json.Unmarshal(raw, &obj); err != nil {
		return call{}, fmt.Errorf("params must be an object or an array: %w", err)
	}
	if _, ok := obj["items"]; ok {
		var b batch
		if err := json.Unmarshal(raw, &b); err != nil {
			return call{}, fmt.Errorf("items: %w", err)
		}
		return call{items: b.Items, continueOnFail: b.ContinueOnFail}, nil
	}
	return call{items: []operation.Params{obj}, single: true}, nil
}

// splitMethod turns "resource.operation" into its parts.
func splitMethod(method string) (resource, op string, ok bool) {
	resource, op, ok = strings.Cut(method, ".")
	return resource, op, ok && resource != "" && op != ""
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeResponse(w, response{Error: toErrorObject(rpc.RpcErrorParse("Parse error: " + err.Error())), ID: nil})
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		writeResponse(w, response{Error: toErrorObject(rpc.NewRpcError(rpc.RpcJSON_RPC, "invalidRequest", "invalidRequest", "jsonrpc must be 2.0")), ID: req.ID})
		return
	}

	result, err := s.invoke(r.Context(), req)
	if err != nil {
		s.logger.Debug("request failed", zap.String("method", req.Method), zap.Error(err))
		writeResponse(w, response{Error: s.errorFor(err), ID: req.ID})
		return
	}
	writeResponse(w, response{Result: result, ID: req.ID})
}

func (s *Server) invoke(ctx context.Context, req request) (any, error) {
	if req.Method == "catalog" {
		return operation.Catalog, nil
	}
	resource, op, ok := splitMethod(req.Method)
	if !ok {
		return nil, rpc.RpcErrorMethodNotFound(req.Method)
	}
	c, err := decodeParams(req.Params)
	if err != nil {
		return nil, rpc.RpcErrorInvalidParams(err.Error())
	}

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	reqs := make([]operation.Request, len(c.items))
	for i, p := range c.items {
		reqs[i] = operation.Request{Resource: resource, Operation: op, Params: p}
	}
	results, err := s.dispatcher.Execute(ctx, reqs, c.continueOnFail)
	if err != nil {
		var ie *operation.ItemError
		if c.single && errors.As(err, &ie) {
			return nil, ie.Err
		}
		return nil, &batchError{err: err, partial: results}
	}
	if c.single {
		return results[0], nil
	}
	return results, nil
}

// batchError is a failed item of a batch without continueOnFail.
type batchError struct {
	err     error
	partial []operation.Result
}

func (e *batchError) Error() string { return e.err.Error() }

func (e *batchError) Unwrap() error { return e.err }

// errorFor maps a failure to a JSON-RPC error. Engine error kinds keep
// their name and ledger code in data.
func (s *Server) errorFor(err error) *errorObject {
	data := map[string]any(operation.ErrorResult(err))
	var rpcErr *rpc.RpcError
	if errors.As(err, &rpcErr) {
		data["error"] = rpcErr.ErrorString
	}
	var be *batchError
	if errors.As(err, &be) {
		var ie *operation.ItemError
		if errors.As(err, &ie) {
			data["index"] = ie.Index
		}
		data["results"] = be.partial
	}
	return &errorObject{Code: errorCode(err), Message: err.Error(), Data: data}
}

func errorCode(err error) int {
	var pe *operation.ParamError
	switch {
	case errors.As(err, &pe):
		return rpc.RpcINVALID_PARAMS
	case errors.Is(err, operation.ErrUnsupported):
		return rpc.RpcMETHOD_NOT_FOUND
	}
	switch ledgererr.KindOf(err) {
	case ledgererr.KindInvalidAmount, ledgererr.KindInvalidAddress, ledgererr.KindInvalidDestinationTag, ledgererr.KindMalformed:
		return rpc.RpcINVALID_PARAMS
	case ledgererr.KindNoCredential:
		return rpc.RpcNO_CREDENTIAL
	case ledgererr.KindNetworkUnavailable:
		return rpc.RpcNO_NETWORK
	}
	var rpcErr *rpc.RpcError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return rpc.RpcINTERNAL
}

func toErrorObject(e *rpc.RpcError) *errorObject {
	return &errorObject{Code: e.Code, Message: e.Error(), Data: map[string]any{"error": e.ErrorString}}
}

func writeResponse(w http.ResponseWriter, resp response) {
	resp.JSONRPC = "2.0"
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
