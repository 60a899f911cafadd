package msghash

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// LimitOrderRequest is the textual form of a limit order. Tokens are
// hexadecimal, every other field is decimal.
type LimitOrderRequest struct {
	VaultSell           string `json:"vault_id_sell"`
	VaultBuy            string `json:"vault_id_buy"`
	AmountSell          string `json:"amount_sell"`
	AmountBuy           string `json:"amount_buy"`
	TokenSell           string `json:"token_sell"`
	TokenBuy            string `json:"token_buy"`
	Nonce               string `json:"nonce"`
	ExpirationTimestamp string `json:"expiration_timestamp"`
}

// LimitOrder is a parsed limit order.
type LimitOrder struct {
	VaultSell           fp.Element
	VaultBuy            fp.Element
	AmountSell          fp.Element
	AmountBuy           fp.Element
	TokenSell           fp.Element
	TokenBuy            fp.Element
	Nonce               fp.Element
	ExpirationTimestamp fp.Element
}

// Parse validates every field in message order and stops at the first
// failure.
func (r *LimitOrderRequest) Parse() (*LimitOrder, error) {
	o := &LimitOrder{}
	var err error
	if o.VaultSell, err = ParseDecimal(r.VaultSell); err != nil {
		return nil, fieldErr("vault_id_sell", err)
	}
	if o.VaultBuy, err = ParseDecimal(r.VaultBuy); err != nil {
		return nil, fieldErr("vault_id_buy", err)
	}
	if o.AmountSell, err = ParseDecimal(r.AmountSell); err != nil {
		return nil, fieldErr("amount_sell", err)
	}
	if o.AmountBuy, err = ParseDecimal(r.AmountBuy); err != nil {
		return nil, fieldErr("amount_buy", err)
	}
	if o.TokenSell, err = ParseHex(r.TokenSell); err != nil {
		return nil, fieldErr("token_sell", err)
	}
	if o.TokenBuy, err = ParseHex(r.TokenBuy); err != nil {
		return nil, fieldErr("token_buy", err)
	}
	if o.Nonce, err = ParseDecimal(r.Nonce); err != nil {
		return nil, fieldErr("nonce", err)
	}
	if o.ExpirationTimestamp, err = ParseDecimal(r.ExpirationTimestamp); err != nil {
		return nil, fieldErr("expiration_timestamp", err)
	}
	return o, nil
}

// Hash parses the request and returns its Pedersen message hash.
func (r *LimitOrderRequest) Hash() (fp.Element, error) {
	o, err := r.Parse()
	if err != nil {
		return fp.Element{}, err
	}
	return o.Hash(PedersenHasher)
}

// Hash packs the order under InstructionLimitOrder and composes it with the
// sell and buy tokens. Orders never carry a condition.
func (o *LimitOrder) Hash(h Hasher) (fp.Element, error) {
	packed, err := Pack(InstructionLimitOrder, limitOrderSlots(o)...)
	if err != nil {
		return fp.Element{}, err
	}
	return Compose(h, &packed, &o.TokenSell, &o.TokenBuy, nil), nil
}
