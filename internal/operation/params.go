package operation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

// Params are the decoded JSON parameters of one request item. Numbers
// arrive as float64.
type Params map[string]any

// ParamError reports a missing or malformed parameter.
type ParamError struct {
	Name   string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %s: %s", e.Name, e.Reason)
}

func missing(name string) error {
	return &ParamError{Name: name, Reason: "required"}
}

func (p Params) has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns a required text parameter. Numbers are rendered without
// an exponent.
func (p Params) String(key string) (string, error) {
	if !p.has(key) {
		return "", missing(key)
	}
	switch v := p[key].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", missing(key)
		}
		return strings.TrimSpace(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", &ParamError{Name: key, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
}

// OptString returns key or def when absent.
func (p Params) OptString(key, def string) (string, error) {
	if !p.has(key) {
		return def, nil
	}
	return p.String(key)
}

// Uint32 returns a required non-negative integer that fits 32 bits.
func (p Params) Uint32(key string) (uint32, error) {
	n, err := p.integer(key)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, &ParamError{Name: key, Reason: "out of range"}
	}
	return uint32(n), nil
}

// OptInt returns key or def when absent.
func (p Params) OptInt(key string, def int) (int, error) {
	if !p.has(key) {
		return def, nil
	}
	n, err := p.integer(key)
	return int(n), err
}

func (p Params) integer(key string) (int64, error) {
	if !p.has(key) {
		return 0, missing(key)
	}
	switch v := p[key].(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, &ParamError{Name: key, Reason: "must be an integer"}
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, &ParamError{Name: key, Reason: "must be an integer"}
		}
		return n, nil
	default:
		return 0, &ParamError{Name: key, Reason: fmt.Sprintf("expected integer, got %T", v)}
	}
}

// Bool is true only for a JSON true or the string "true".
func (p Params) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// DestinationTag returns the optional destinationTag, failing with
// InvalidDestinationTag when it is not an integer in the 32-bit range.
func (p Params) DestinationTag() (*int64, error) {
	const key = "destinationTag"
	if !p.has(key) {
		return nil, nil
	}
	var tag int64
	switch v := p[key].(type) {
	case float64:
		t, err := tx.ValidateDestinationTagFloat(v)
		if err != nil {
			return nil, err
		}
		tag = int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || !tx.IsValidDestinationTag(n) {
			return nil, ledgererr.New(ledgererr.KindInvalidDestinationTag, "invalid destination tag %q", v)
		}
		tag = n
	default:
		return nil, ledgererr.New(ledgererr.KindInvalidDestinationTag, "invalid destination tag %v", v)
	}
	return &tag, nil
}

// Time accepts an RFC 3339 string or Unix seconds. Absent yields nil.
func (p Params) Time(key string) (*time.Time, error) {
	if !p.has(key) {
		return nil, nil
	}
	if s, ok := p[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return &t, nil
		}
	}
	secs, err := p.integer(key)
	if err != nil {
		return nil, &ParamError{Name: key, Reason: "expected RFC 3339 time or Unix seconds"}
	}
	t := time.Unix(secs, 0).UTC()
	return &t, nil
}

// Memos accepts either memos (a list of {type,data,format}) or a single
// memo string used as data.
func (p Params) Memos() ([]tx.Memo, error) {
	if s, ok := p["memo"].(string); ok && s != "" {
		return []tx.Memo{{Data: s}}, nil
	}
	var memos []tx.Memo
	if err := p.Decode("memos", &memos); err != nil {
		return nil, err
	}
	return memos, nil
}

// Decode converts the optional object under key into out.
func (p Params) Decode(key string, out any) error {
	if !p.has(key) {
		return nil
	}
	raw, err := json.Marshal(p[key])
	if err != nil {
		return &ParamError{Name: key, Reason: err.Error()}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParamError{Name: key, Reason: err.Error()}
	}
	return nil
}

// Into decodes the whole parameter object into out, ignoring fields out
// does not declare. Flag option structs are read this way.
func (p Params) Into(out any) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return &ParamError{Name: "params", Reason: err.Error()}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParamError{Name: "params", Reason: err.Error()}
	}
	return nil
}
