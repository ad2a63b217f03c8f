package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a Smartsheet object ID. It decodes from a JSON string or number and
// encodes as a string, since IDs exceed the float64-safe integer range.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("invalid id %s: must be a positive integer", b)
	}
	*id = ID(v)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(id), 10))), nil
}

func (id ID) Int64() int64 {
	return int64(id)
}

// Params are validated after decoding; Validate covers rules the schema cannot express
type Params interface {
	Validate() error
}

// bindParams decodes raw into p and runs its Validate
func bindParams(raw json.RawMessage, p Params) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return NewToolError(ErrCodeInvalidParams, "Invalid parameters: "+err.Error(), nil)
		}
	}
	if err := p.Validate(); err != nil {
		return &ToolError{Code: ErrCodeInvalidParams, Message: err.Error(), cause: err}
	}
	return nil
}

func ids(in []ID) []int64 {
	out := make([]int64, len(in))
	for i, id := range in {
		out[i] = int64(id)
	}
	return out
}
