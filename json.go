package msghash

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// DecodeTransferRequest parses a JSON encoded transfer request. Unknown
// fields and trailing data are rejected. A missing condition and an explicit
// null both decode to a nil Condition.
func DecodeTransferRequest(data []byte) (*TransferRequest, error) {
	var req TransferRequest
	if err := DecodeStrict(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeLimitOrderRequest parses a JSON encoded limit order request.
func DecodeLimitOrderRequest(data []byte) (*LimitOrderRequest, error) {
	var req LimitOrderRequest
	if err := DecodeStrict(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeStrict decodes a single JSON value from data into v, rejecting
// unknown fields and trailing data.
func DecodeStrict(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.New("parameter 'data' is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
