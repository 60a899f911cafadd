// Package capi exposes message hashing through a status-code boundary for
// callers that pass raw, NUL-terminated text handles and a caller-owned
// output buffer.
//
// On StatusOK exactly 32 big-endian bytes are written to the output; on any
// other status the output is left untouched.
package capi

import (
	"bytes"
	"errors"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	msghash "github.com/vocdoni/starkex-msghash-go"
)

// Status is the result code of a boundary call.
type Status int32

const (
	StatusOK Status = iota
	StatusInvalidNullPointer
	StatusInvalidTextEncoding
	StatusInvalidNumeralSyntax
	StatusNumeralOutOfRange
	StatusHashComputationError
)

var statusNames = [...]string{
	StatusOK:                   "ok",
	StatusInvalidNullPointer:   "invalid_null_pointer",
	StatusInvalidTextEncoding:  "invalid_text_encoding",
	StatusInvalidNumeralSyntax: "invalid_numeral_syntax",
	StatusNumeralOutOfRange:    "numeral_out_of_range",
	StatusHashComputationError: "hash_computation_error",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// ErrNullPointer is returned for a nil handle or a nil output buffer.
var ErrNullPointer = errors.New("null pointer")

// StatusFromError maps an error returned by this module to its status code.
// Errors outside the taxonomy map to StatusHashComputationError.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNullPointer):
		return StatusInvalidNullPointer
	case errors.Is(err, msghash.ErrHashComputation):
		return StatusHashComputationError
	case errors.Is(err, msghash.ErrInvalidTextEncoding):
		return StatusInvalidTextEncoding
	case errors.Is(err, msghash.ErrInvalidNumeral):
		return StatusInvalidNumeralSyntax
	case errors.Is(err, msghash.ErrNumeralOutOfRange):
		return StatusNumeralOutOfRange
	}
	return StatusHashComputationError
}

// Handle references caller-owned text. A nil Handle is the null pointer;
// the text ends at the first NUL byte or at the end of the buffer.
type Handle []byte

// String returns the text behind h, or ErrNullPointer for a null handle.
func (h Handle) String() (string, error) {
	if h == nil {
		return "", ErrNullPointer
	}
	if i := bytes.IndexByte(h, 0); i >= 0 {
		return string(h[:i]), nil
	}
	return string(h), nil
}

// CString builds a handle holding s followed by a NUL terminator.
func CString(s string) Handle {
	h := make(Handle, len(s)+1)
	copy(h, s)
	return h
}

// TransferMsg is the boundary layout of a transfer. Condition may be nil.
type TransferMsg struct {
	Amount              Handle // decimal
	Nonce               Handle // decimal
	SenderVaultID       Handle // decimal
	Token               Handle // hex
	ReceiverVaultID     Handle // decimal
	ReceiverPublicKey   Handle // hex
	ExpirationTimestamp Handle // decimal
	Condition           Handle // hex, nullable
}

// LimitOrderMsg is the boundary layout of a limit order.
type LimitOrderMsg struct {
	VaultSell           Handle // decimal
	VaultBuy            Handle // decimal
	AmountSell          Handle // decimal
	AmountBuy           Handle // decimal
	TokenSell           Handle // hex
	TokenBuy            Handle // hex
	Nonce               Handle // decimal
	ExpirationTimestamp Handle // decimal
}

// GetTransferMsgHash hashes msg and writes the digest to out.
func GetTransferMsgHash(msg TransferMsg, out *[32]byte) Status {
	if out == nil {
		return StatusInvalidNullPointer
	}
	digest, err := transferHash(msg)
	if err != nil {
		return StatusFromError(err)
	}
	*out = digest.Bytes()
	return StatusOK
}

// GetLimitOrderMsgHash hashes msg and writes the digest to out.
func GetLimitOrderMsgHash(msg LimitOrderMsg, out *[32]byte) Status {
	if out == nil {
		return StatusInvalidNullPointer
	}
	digest, err := limitOrderHash(msg)
	if err != nil {
		return StatusFromError(err)
	}
	*out = digest.Bytes()
	return StatusOK
}

func transferHash(msg TransferMsg) (fp.Element, error) {
	var t msghash.Transfer
	rd := &fieldReader{}
	rd.decimal("amount", msg.Amount, &t.Amount)
	rd.decimal("nonce", msg.Nonce, &t.Nonce)
	rd.decimal("sender_vault_id", msg.SenderVaultID, &t.SenderVaultID)
	rd.hex("token", msg.Token, &t.Token)
	rd.decimal("receiver_vault_id", msg.ReceiverVaultID, &t.ReceiverVaultID)
	rd.hex("receiver_public_key", msg.ReceiverPublicKey, &t.ReceiverPublicKey)
	rd.decimal("expiration_timestamp", msg.ExpirationTimestamp, &t.ExpirationTimestamp)
	if msg.Condition != nil {
		t.Condition = new(fp.Element)
		rd.hex("condition", msg.Condition, t.Condition)
	}
	if rd.err != nil {
		return fp.Element{}, rd.err
	}
	return t.Hash(msghash.PedersenHasher)
}

func limitOrderHash(msg LimitOrderMsg) (fp.Element, error) {
	var o msghash.LimitOrder
	rd := &fieldReader{}
	rd.decimal("vault_id_sell", msg.VaultSell, &o.VaultSell)
	rd.decimal("vault_id_buy", msg.VaultBuy, &o.VaultBuy)
	rd.decimal("amount_sell", msg.AmountSell, &o.AmountSell)
	rd.decimal("amount_buy", msg.AmountBuy, &o.AmountBuy)
	rd.hex("token_sell", msg.TokenSell, &o.TokenSell)
	rd.hex("token_buy", msg.TokenBuy, &o.TokenBuy)
	rd.decimal("nonce", msg.Nonce, &o.Nonce)
	rd.decimal("expiration_timestamp", msg.ExpirationTimestamp, &o.ExpirationTimestamp)
	if rd.err != nil {
		return fp.Element{}, rd.err
	}
	return o.Hash(msghash.PedersenHasher)
}

// fieldReader dereferences and parses handles in call order. Once a field
// fails, later calls are no-ops and err keeps the first failure.
type fieldReader struct {
	err error
}

func (r *fieldReader) decimal(name string, h Handle, dst *fp.Element) {
	r.read(name, h, dst, msghash.ParseDecimal)
}

func (r *fieldReader) hex(name string, h Handle, dst *fp.Element) {
	r.read(name, h, dst, msghash.ParseHex)
}

func (r *fieldReader) read(name string, h Handle, dst *fp.Element, parse func(string) (fp.Element, error)) {
	if r.err != nil {
		return
	}
	s, err := h.String()
	if err == nil {
		*dst, err = parse(s)
	}
	if err != nil {
		r.err = &msghash.FieldError{Field: name, Err: err}
	}
}
