package msghash

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestDecodeTransferRequest(t *testing.T) {
	c := qt.New(t)

	data := []byte(`{
		"amount": "2154549703648910716",
		"nonce": "1",
		"sender_vault_id": "34",
		"token": "0x3003a65651d3b9fb2eff934a4416db301afd112a8492aaf8d7297fc87dcd9f4",
		"receiver_vault_id": "21",
		"receiver_public_key": "0x5fa3383597691ea9d827a79e1a4f0f7949435ced18ca9619de8ab97e661020",
		"expiration_timestamp": "438953"
	}`)
	req, err := DecodeTransferRequest(data)
	c.Assert(err, qt.IsNil)
	c.Assert(req, qt.DeepEquals, validTransferRequest())
	c.Assert(req.Condition, qt.IsNil)

	withNull := []byte(`{"amount":"1","nonce":"1","sender_vault_id":"1","token":"0x1",
		"receiver_vault_id":"1","receiver_public_key":"0x1","expiration_timestamp":"1","condition":null}`)
	req, err = DecodeTransferRequest(withNull)
	c.Assert(err, qt.IsNil)
	c.Assert(req.Condition, qt.IsNil)

	withCond := []byte(`{"amount":"1","nonce":"1","sender_vault_id":"1","token":"0x1",
		"receiver_vault_id":"1","receiver_public_key":"0x1","expiration_timestamp":"1","condition":"0x2"}`)
	req, err = DecodeTransferRequest(withCond)
	c.Assert(err, qt.IsNil)
	c.Assert(req.Condition, qt.IsNotNil)
	c.Assert(*req.Condition, qt.Equals, "0x2")
}

func TestDecodeLimitOrderRequest(t *testing.T) {
	c := qt.New(t)

	data, err := json.Marshal(validLimitOrderRequest())
	c.Assert(err, qt.IsNil)
	req, err := DecodeLimitOrderRequest(data)
	c.Assert(err, qt.IsNil)
	c.Assert(req, qt.DeepEquals, validLimitOrderRequest())
}

func TestDecodeStrict(t *testing.T) {
	c := qt.New(t)

	_, err := DecodeTransferRequest(nil)
	c.Assert(err, qt.ErrorMatches, "parameter 'data' is empty")

	_, err = DecodeTransferRequest([]byte("  \n"))
	c.Assert(err, qt.IsNotNil)

	_, err = DecodeLimitOrderRequest([]byte(`{"vault_id_sell":"1","price":"3"}`))
	c.Assert(err, qt.ErrorMatches, `.*unknown field "price".*`)

	_, err = DecodeLimitOrderRequest([]byte(`{"vault_id_sell":"1"} {}`))
	c.Assert(err, qt.ErrorMatches, "unexpected data after JSON value")

	// numbers are not accepted in place of numerals
	_, err = DecodeTransferRequest([]byte(`{"amount":1}`))
	c.Assert(err, qt.IsNotNil)
}

func TestSignatureJSON(t *testing.T) {
	c := qt.New(t)

	var sig Signature
	err := json.Unmarshal([]byte(`{"r":"0x1f","s":"2a"}`), &sig)
	c.Assert(err, qt.IsNil)
	c.Assert(sig.R.Int64(), qt.Equals, int64(0x1f))
	c.Assert(sig.S.Int64(), qt.Equals, int64(0x2a))

	out, err := json.Marshal(sig)
	c.Assert(err, qt.IsNil)
	c.Assert(string(out), qt.Equals, `{"r":"0x1f","s":"0x2a"}`)

	err = json.Unmarshal([]byte(`{"r":"zz","s":"1"}`), &sig)
	c.Assert(err, qt.ErrorIs, ErrInvalidNumeral)

	err = json.Unmarshal([]byte(`{"r":"0x1","s":"0x2","v":"0x1b"}`), &sig)
	c.Assert(err, qt.ErrorMatches, `.*unknown field "v".*`)

	_, err = json.Marshal(Signature{})
	c.Assert(err, qt.ErrorIs, ErrInvalidSignature)
}
