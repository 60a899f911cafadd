package msghash

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	pedersenhash "github.com/consensys/gnark-crypto/ecc/stark-curve/pedersen-hash"
)

// Hasher is the two-to-one hash used to compose message digests and to build
// batch trees.
type Hasher func(a, b *fp.Element) fp.Element

// PedersenHasher computes the StarkWare Pedersen hash of two field elements.
// It is the hash the StarkEx verifier uses for order and transfer messages,
// built from the constant points of the STARK curve.
//
// This hasher is suitable for:
//   - StarkEx limit order, transfer and conditional transfer messages
//   - Starknet style commitments over felts
//
// Parameters:
//   - a: First input value
//   - b: Second input value
//
// Returns: Hash result as a field element
func PedersenHasher(a, b *fp.Element) fp.Element {
	return pedersenhash.Pedersen(a, b)
}

// Compose hashes the token pair, the optional condition and the packed
// message:
//
//	H(H(token0, token1), packed)                 without condition
//	H(H(H(token0, token1), condition), packed)   with condition
func Compose(h Hasher, packed, token0, token1 *fp.Element, condition *fp.Element) fp.Element {
	acc := h(token0, token1)
	if condition != nil {
		acc = h(&acc, condition)
	}
	return h(&acc, packed)
}
