package msghash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"math/big"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fr"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// curveOrder is the order n of the STARK curve generator.
	curveOrder = fr.Modulus()
	// elementBound is 2^251, the upper bound for message hashes, r and w.
	elementBound = new(big.Int).Lsh(big.NewInt(1), 251)
	// curveBeta is the constant term of y^2 = x^3 + x + beta.
	curveBeta = mustParseHex("0x6f21413efbe40de150e596d72f7a8c5609ad26c15c915c1f4cdfcb99cee9e89")

	one = big.NewInt(1)
)

// Signature is a StarkEx ECDSA signature.
type Signature struct {
	R *big.Int
	S *big.Int
}

type signatureJSON struct {
	R string `json:"r"`
	S string `json:"s"`
}

// MarshalJSON encodes the signature as 0x-prefixed hex strings.
func (s Signature) MarshalJSON() ([]byte, error) {
	if s.R == nil || s.S == nil {
		return nil, ErrInvalidSignature
	}
	return json.Marshal(signatureJSON{R: hexutil.EncodeBig(s.R), S: hexutil.EncodeBig(s.S)})
}

// UnmarshalJSON decodes hex encoded r and s, with or without 0x prefix.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var raw signatureJSON
	if err := DecodeStrict(data, &raw); err != nil {
		return err
	}
	r, err := ParseHex(raw.R)
	if err != nil {
		return fieldErr("r", err)
	}
	v, err := ParseHex(raw.S)
	if err != nil {
		return fieldErr("s", err)
	}
	s.R, s.S = FeltToBig(&r), FeltToBig(&v)
	return nil
}

// PublicKey returns the stark key of priv, the x coordinate of priv·G.
func PublicKey(priv *big.Int) (*big.Int, error) {
	if !validPrivateKey(priv) {
		return nil, ErrInvalidPrivateKey
	}
	g, _ := starkcurve.Generators()
	var p starkcurve.G1Jac
	p.ScalarMultiplication(&g, priv)
	return affineX(&p), nil
}

// Sign signs msgHash with priv. The nonce is derived deterministically as in
// RFC 6979 with HMAC-SHA256; seed adds extra entropy and may be nil. When a
// nonce produces an unusable signature the seed is increased by one and a
// new nonce is derived.
func Sign(priv, msgHash, seed *big.Int) (Signature, error) {
	if !validPrivateKey(priv) {
		return Signature{}, ErrInvalidPrivateKey
	}
	if !inRange(msgHash, 0, elementBound) {
		return Signature{}, ErrInvalidMessageHash
	}
	var s *big.Int
	if seed != nil {
		s = new(big.Int).Set(seed)
	}
	for {
		k := generateK(msgHash, priv, s)
		if s == nil {
			s = big.NewInt(1)
		} else {
			s.Add(s, one)
		}
		if sig, ok := signWithK(priv, msgHash, k); ok {
			return sig, nil
		}
	}
}

func signWithK(priv, z, k *big.Int) (Signature, bool) {
	g, _ := starkcurve.Generators()
	var kg starkcurve.G1Jac
	kg.ScalarMultiplication(&g, k)
	r := affineX(&kg)
	if !inRange(r, 1, elementBound) {
		return Signature{}, false
	}
	// w = k / (z + r·priv) mod n, s = 1/w
	t := new(big.Int).Mul(r, priv)
	t.Add(t, z).Mod(t, curveOrder)
	if t.Sign() == 0 {
		return Signature{}, false
	}
	w := new(big.Int).ModInverse(t, curveOrder)
	w.Mul(w, k).Mod(w, curveOrder)
	if !inRange(w, 1, elementBound) {
		return Signature{}, false
	}
	return Signature{R: r, S: new(big.Int).ModInverse(w, curveOrder)}, true
}

// Verify checks sig against msgHash and a stark key given as an x
// coordinate. Both points sharing that x coordinate are accepted.
func Verify(publicKey, msgHash *big.Int, sig Signature) (bool, error) {
	if !inRange(msgHash, 0, elementBound) {
		return false, ErrInvalidMessageHash
	}
	if !inRange(sig.R, 1, elementBound) || !inRange(sig.S, 1, curveOrder) {
		return false, ErrInvalidSignature
	}
	w := new(big.Int).ModInverse(sig.S, curveOrder)
	if !inRange(w, 1, elementBound) {
		return false, ErrInvalidSignature
	}
	q, err := pointFromX(publicKey)
	if err != nil {
		return false, err
	}

	zw := new(big.Int).Mul(msgHash, w)
	zw.Mod(zw, curveOrder)
	rw := new(big.Int).Mul(sig.R, w)
	rw.Mod(rw, curveOrder)

	g, _ := starkcurve.Generators()
	var qj, zwG, rwQ starkcurve.G1Jac
	qj.FromAffine(&q)
	zwG.ScalarMultiplication(&g, zw)
	rwQ.ScalarMultiplication(&qj, rw)

	sum := zwG
	sum.AddAssign(&rwQ)
	if affineX(&sum).Cmp(sig.R) == 0 {
		return true, nil
	}
	var neg starkcurve.G1Jac
	neg.Neg(&rwQ)
	diff := zwG
	diff.AddAssign(&neg)
	return affineX(&diff).Cmp(sig.R) == 0, nil
}

// pointFromX recovers a curve point with the given x coordinate.
func pointFromX(x *big.Int) (starkcurve.G1Affine, error) {
	var p starkcurve.G1Affine
	if !inRange(x, 0, fp.Modulus()) {
		return p, ErrInvalidPublicKey
	}
	p.X.SetBigInt(x)
	var rhs fp.Element
	rhs.Square(&p.X).
		Mul(&rhs, &p.X).
		Add(&rhs, &p.X).
		Add(&rhs, &curveBeta)
	if p.Y.Sqrt(&rhs) == nil {
		return p, ErrInvalidPublicKey
	}
	return p, nil
}

// generateK derives a nonce following RFC 6979 over the 252-bit curve order.
// Message hashes whose bit length is 1..4 modulo 8 and at least 248 are
// shifted by one nibble first so that truncation to 252 bits keeps every
// bit, matching the StarkWare reference signer.
func generateK(msgHash, priv, seed *big.Int) *big.Int {
	const qlen = 252
	h := new(big.Int).Set(msgHash)
	if bl := h.BitLen(); bl%8 >= 1 && bl%8 <= 4 && bl >= 248 {
		h.Lsh(h, 4)
	}
	z := bits2int(h.Bytes(), qlen)
	z.Mod(z, curveOrder)

	x := make([]byte, 32)
	priv.FillBytes(x)
	zb := make([]byte, 32)
	z.FillBytes(zb)
	var extra []byte
	if seed != nil {
		extra = seed.Bytes()
	}

	mac := func(key []byte, parts ...[]byte) []byte {
		m := hmac.New(sha256.New, key)
		for _, p := range parts {
			m.Write(p)
		}
		return m.Sum(nil)
	}

	v := make([]byte, sha256.Size)
	for i := range v {
		v[i] = 0x01
	}
	k := make([]byte, sha256.Size)
	k = mac(k, v, []byte{0x00}, x, zb, extra)
	v = mac(k, v)
	k = mac(k, v, []byte{0x01}, x, zb, extra)
	v = mac(k, v)

	for {
		v = mac(k, v)
		candidate := bits2int(v, qlen)
		if candidate.Sign() > 0 && candidate.Cmp(curveOrder) < 0 {
			return candidate
		}
		k = mac(k, v, []byte{0x00})
		v = mac(k, v)
	}
}

// bits2int keeps the leftmost qlen bits of b.
func bits2int(b []byte, qlen int) *big.Int {
	x := new(big.Int).SetBytes(b)
	if l := len(b) * 8; l > qlen {
		x.Rsh(x, uint(l-qlen))
	}
	return x
}

func affineX(p *starkcurve.G1Jac) *big.Int {
	var a starkcurve.G1Affine
	a.FromJacobian(p)
	return a.X.BigInt(new(big.Int))
}

func validPrivateKey(priv *big.Int) bool {
	return inRange(priv, 1, curveOrder)
}

// inRange reports whether lo <= v < hi.
func inRange(v *big.Int, lo int64, hi *big.Int) bool {
	return v != nil && v.Cmp(big.NewInt(lo)) >= 0 && v.Cmp(hi) < 0
}

func mustParseHex(s string) fp.Element {
	e, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return e
}
