package msghash

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/holiman/uint256"
)

// InstructionType is the leading tag of a packed message. Verifiers rely on
// these values to re-derive the hash, so they must never be renumbered.
type InstructionType uint64

const (
	InstructionLimitOrder          InstructionType = 0
	InstructionTransfer            InstructionType = 1
	InstructionConditionalTransfer InstructionType = 2
)

// Bit widths of the packed message slots.
const (
	VaultIDBits    = 31
	AmountBits     = 63
	NonceBits      = 31
	ExpirationBits = 22
)

// Slot is one value of a packed message together with the number of bits
// the accumulator is shifted left before the value is added.
type Slot struct {
	Width uint
	Value fp.Element
}

// Pack folds the slots into a 256-bit accumulator seeded with the
// instruction tag, using acc = (acc << width) + value. The accumulator wraps
// modulo 2^256 and is only then reduced into the field; values that do not
// fit in their slot bleed into the neighbouring ones exactly like the legacy
// layout does.
//
// Packing never fails, but the final word must be a canonical field element;
// otherwise ErrHashComputation is returned.
func Pack(instruction InstructionType, slots ...Slot) (fp.Element, error) {
	return reduceWord(packWord(instruction, slots...))
}

// packWord returns the raw wrapped accumulator.
func packWord(instruction InstructionType, slots ...Slot) *uint256.Int {
	acc := uint256.NewInt(uint64(instruction))
	for i := range slots {
		acc.Lsh(acc, slots[i].Width)
		acc.Add(acc, feltToWord(&slots[i].Value))
	}
	return acc
}

// reduceWord re-parses the hexadecimal form of word as a field element.
func reduceWord(word *uint256.Int) (fp.Element, error) {
	e, err := ParseHex(word.Hex())
	if err != nil {
		return e, fmt.Errorf("%w: packed message %s: %v", ErrHashComputation, word.Hex(), err)
	}
	return e, nil
}

func feltToWord(e *fp.Element) *uint256.Int {
	b := e.Bytes()
	return new(uint256.Int).SetBytes32(b[:])
}

// transferSlots is the transfer layout. The zero slot mirrors the second
// amount of the limit order layout and is part of the canonical encoding.
func transferSlots(t *Transfer) []Slot {
	return []Slot{
		{Width: VaultIDBits, Value: t.SenderVaultID},
		{Width: VaultIDBits, Value: t.ReceiverVaultID},
		{Width: AmountBits, Value: t.Amount},
		{Width: AmountBits, Value: fp.Element{}},
		{Width: NonceBits, Value: t.Nonce},
		{Width: ExpirationBits, Value: t.ExpirationTimestamp},
	}
}

func limitOrderSlots(o *LimitOrder) []Slot {
	return []Slot{
		{Width: VaultIDBits, Value: o.VaultSell},
		{Width: VaultIDBits, Value: o.VaultBuy},
		{Width: AmountBits, Value: o.AmountSell},
		{Width: AmountBits, Value: o.AmountBuy},
		{Width: NonceBits, Value: o.Nonce},
		{Width: ExpirationBits, Value: o.ExpirationTimestamp},
	}
}
