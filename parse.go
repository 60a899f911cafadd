package msghash

import (
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// ParseDecimal parses a base-10 numeral into a field element. Only ASCII
// digits are accepted: no sign, no prefix and no surrounding whitespace.
func ParseDecimal(s string) (fp.Element, error) {
	return parseNumeral(s, 10)
}

// maxHexDigits is the widest hex numeral accepted, leading zeros included.
const maxHexDigits = 64

// ParseHex parses a base-16 numeral into a field element. A single lowercase
// "0x" prefix is allowed; digits may use either case. More than 64 digits is
// out of range even when the extra digits are leading zeros.
func ParseHex(s string) (fp.Element, error) {
	s = strings.TrimPrefix(s, "0x")
	e, err := parseNumeral(s, 16)
	if err == nil && len(s) > maxHexDigits {
		return fp.Element{}, ErrNumeralOutOfRange
	}
	return e, err
}

// parseNumeral validates s against radix and returns it as a field element.
// Values greater than or equal to the field modulus are rejected rather than
// reduced.
func parseNumeral(s string, radix int) (fp.Element, error) {
	var e fp.Element
	if !utf8.ValidString(s) {
		return e, ErrInvalidTextEncoding
	}
	if s == "" {
		return e, ErrInvalidNumeral
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i], radix) {
			return e, ErrInvalidNumeral
		}
	}
	n, ok := new(big.Int).SetString(s, radix)
	if !ok {
		return e, ErrInvalidNumeral
	}
	if n.Cmp(fp.Modulus()) >= 0 {
		return e, ErrNumeralOutOfRange
	}
	e.SetBigInt(n)
	return e, nil
}

func isDigit(c byte, radix int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case radix == 16 && c >= 'a' && c <= 'f':
		return true
	case radix == 16 && c >= 'A' && c <= 'F':
		return true
	}
	return false
}
