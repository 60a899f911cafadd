package msghash

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// TransferRequest is the textual form of a transfer message as it arrives
// from clients. Decimal fields are base-10 numerals, Token,
// ReceiverPublicKey and Condition are hexadecimal. A nil Condition is the
// only way to express an unconditional transfer.
type TransferRequest struct {
	Amount              string  `json:"amount"`
	Nonce               string  `json:"nonce"`
	SenderVaultID       string  `json:"sender_vault_id"`
	Token               string  `json:"token"`
	ReceiverVaultID     string  `json:"receiver_vault_id"`
	ReceiverPublicKey   string  `json:"receiver_public_key"`
	ExpirationTimestamp string  `json:"expiration_timestamp"`
	Condition           *string `json:"condition,omitempty"`
}

// Transfer is a parsed transfer message.
type Transfer struct {
	Amount              fp.Element
	Nonce               fp.Element
	SenderVaultID       fp.Element
	Token               fp.Element
	ReceiverVaultID     fp.Element
	ReceiverPublicKey   fp.Element
	ExpirationTimestamp fp.Element
	Condition           *fp.Element // nil when unconditional
}

// Parse validates every field in message order and stops at the first
// failure, which is reported as a *FieldError.
func (r *TransferRequest) Parse() (*Transfer, error) {
	t := &Transfer{}
	var err error
	if t.Amount, err = ParseDecimal(r.Amount); err != nil {
		return nil, fieldErr("amount", err)
	}
	if t.Nonce, err = ParseDecimal(r.Nonce); err != nil {
		return nil, fieldErr("nonce", err)
	}
	if t.SenderVaultID, err = ParseDecimal(r.SenderVaultID); err != nil {
		return nil, fieldErr("sender_vault_id", err)
	}
	if t.Token, err = ParseHex(r.Token); err != nil {
		return nil, fieldErr("token", err)
	}
	if t.ReceiverVaultID, err = ParseDecimal(r.ReceiverVaultID); err != nil {
		return nil, fieldErr("receiver_vault_id", err)
	}
	if t.ReceiverPublicKey, err = ParseHex(r.ReceiverPublicKey); err != nil {
		return nil, fieldErr("receiver_public_key", err)
	}
	if t.ExpirationTimestamp, err = ParseDecimal(r.ExpirationTimestamp); err != nil {
		return nil, fieldErr("expiration_timestamp", err)
	}
	if r.Condition != nil {
		c, err := ParseHex(*r.Condition)
		if err != nil {
			return nil, fieldErr("condition", err)
		}
		t.Condition = &c
	}
	return t, nil
}

// Hash parses the request and returns its Pedersen message hash.
func (r *TransferRequest) Hash() (fp.Element, error) {
	t, err := r.Parse()
	if err != nil {
		return fp.Element{}, err
	}
	return t.Hash(PedersenHasher)
}

// Instruction returns the tag for the transfer. It is derived from the same
// condition pointer that decides the number of hash rounds.
func (t *Transfer) Instruction() InstructionType {
	if t.Condition != nil {
		return InstructionConditionalTransfer
	}
	return InstructionTransfer
}

// Hash packs the transfer and composes it with the token and receiver key.
func (t *Transfer) Hash(h Hasher) (fp.Element, error) {
	packed, err := Pack(t.Instruction(), transferSlots(t)...)
	if err != nil {
		return fp.Element{}, err
	}
	return Compose(h, &packed, &t.Token, &t.ReceiverPublicKey, t.Condition), nil
}
