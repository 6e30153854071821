package amount

import "math/big"

// Format is a packed floating representation over token base units:
// value = mantissa * 10^exponent.
type Format struct {
	MantissaBits uint
	ExponentBits uint
}

// Network packing formats.
var (
	// TransactionFormat packs transfer amounts.
	TransactionFormat = Format{MantissaBits: 35, ExponentBits: 5}

	// FeeFormat packs fees.
	FeeFormat = Format{MantissaBits: 11, ExponentBits: 5}
)

var ten = big.NewInt(10)

// MaxMantissa returns the largest mantissa the format can hold.
func (f Format) MaxMantissa() uint64 {
	return 1<<f.MantissaBits - 1
}

// MaxExponent returns the largest exponent the format can hold.
func (f Format) MaxExponent() uint8 {
	return uint8(1<<f.ExponentBits - 1)
}

// Pack rounds units down to the closest representable value.
// Non-positive input packs to zero. Input above the largest representable
// value clamps to that value.
func (f Format) Pack(units *big.Int) (mantissa uint64, exponent uint8) {
	if units == nil || units.Sign() <= 0 {
		return 0, 0
	}

	maxMantissa := new(big.Int).SetUint64(f.MaxMantissa())
	maxExponent := f.MaxExponent()

	m := new(big.Int).Set(units)
	var e uint8
	for m.Cmp(maxMantissa) > 0 && e < maxExponent {
		m.Quo(m, ten)
		e++
	}
	if m.Cmp(maxMantissa) > 0 {
		m.Set(maxMantissa)
	}
	return m.Uint64(), e
}

// Unpack returns the base-unit value of a packed pair.
func (f Format) Unpack(mantissa uint64, exponent uint8) *big.Int {
	scale := new(big.Int).Exp(ten, big.NewInt(int64(exponent)), nil)
	return scale.Mul(scale, new(big.Int).SetUint64(mantissa))
}

// IsPackable reports whether units are exactly representable.
func (f Format) IsPackable(units *big.Int) bool {
	m, e := f.Pack(units)
	return f.Unpack(m, e).Cmp(units) == 0
}
