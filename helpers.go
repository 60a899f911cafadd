package msghash

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/ethereum/go-ethereum/common"
)

// FeltToHash returns the 32-byte big-endian encoding of e.
func FeltToHash(e *fp.Element) common.Hash {
	return common.Hash(e.Bytes())
}

// HashToFelt decodes a 32-byte big-endian value. Values that are not
// canonical field elements are rejected with ErrNumeralOutOfRange.
func HashToFelt(h common.Hash) (fp.Element, error) {
	var e fp.Element
	if err := e.SetBytesCanonical(h[:]); err != nil {
		return e, ErrNumeralOutOfRange
	}
	return e, nil
}

// FeltToBig returns e as a *big.Int.
func FeltToBig(e *fp.Element) *big.Int {
	return e.BigInt(new(big.Int))
}

// FeltHex returns e as a 0x-prefixed hexadecimal string without padding.
func FeltHex(e *fp.Element) string {
	return "0x" + FeltToBig(e).Text(16)
}
