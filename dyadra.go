// Copyright 2020 Aleksandr Demakin. All rights reserved.

// Package dyadic implements a dyadic rational number in the range (0, 1],
// where both the odd numerator and the power-of-two denominator
// are stored in a single uint64 without separate exponent or sign fields.
package dyadic

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeebo/errs"

	mu "github.com/avdva/dyadic/internal/mathutil"
)

var (
	// JSONMode defines the way all values are marshaled into json, see JSONMode* constants.
	// This variable is not thread-safe, so this should be changed on program start.
	JSONMode = JSONModeBits
)

const (
	// JSONModeBits marshals values as raw words, like `5`.
	JSONModeBits = iota
	// JSONModeME marshals values with numerator and exponent, like `{"m":3,"e":3}`.
	JSONModeME
	// JSONModeString produces exact decimal strings, like `"0.375"`.
	JSONModeString
)

var (
	// Error is the error class for this package.
	Error = errs.Class("dyadic")

	// ErrPrecision is returned, when the result needs a denominator over 2^64.
	// Mul panics with this value.
	ErrPrecision = Error.New("precision error")
	// ErrRange is returned for values outside (0, 1].
	ErrRange = Error.New("value out of range")
	// ErrEvenMantissa is returned for an even numerator.
	ErrEvenMantissa = Error.New("even numerator")
	// ErrNotDyadic is returned for decimals, that are not m/2^e with e <= 64.
	ErrNotDyadic = Error.New("not a dyadic rational")

	one       = decimal.New(1, 0)
	wordScale = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), uint(maxExponent)), 0)
	five      = big.NewInt(5)

	jsonParts = []string{`{"m":`, `,"e":`, `}`}
)

const (
	maxExponent = mu.WordBits
	// float64 significand width, including the implicit bit.
	floatMantBits = 53
)

const (
	// Max is the largest value, 1.
	Max = Dyadra(0)
	// Min is the smallest value, 2^-64.
	Min = Dyadra(1 << (maxExponent - 1))
)

// Dyadra is a positive dyadic rational number in the range (0, 1].
// Let i be the 1-based position of the leading one of the word,
// and b the bits below it. Then the value is (2b+1)/2^i:
//   63                                                             0
//   _______________________________________________________________
//   000000000000000000000000000000000000000000000000000000000001bbb
//                                                               i=4
// Zero word has i = 0, and represents 1/2^0.
// Every uint64 is a valid value, and every value has exactly one word,
// so two values are equal iff their words are equal.
type Dyadra uint64

func leadingOne(v Dyadra) int {
	return mu.BinaryDigits(uint64(v))
}

func mantissa(v Dyadra) uint64 {
	mask := mu.LowMask(mu.SatSub(leadingOne(v), 1))
	return (uint64(v)&mask)<<1 | 1
}

func split(v Dyadra) (num uint64, exp int) {
	return mantissa(v), leadingOne(v)
}

// fromMantAndExp expects an odd num < 2^exp, or num == 1 for exp == 0.
func fromMantAndExp(num uint64, exp int) Dyadra {
	return Dyadra(mu.HighBit(exp) + num>>1)
}

// FromBits returns a value for given raw word.
func FromBits(b uint64) Dyadra {
	return Dyadra(b)
}

// FromMantAndExp returns num/2^exp.
// Returns an error, if num is even, or the pair is outside of (0, 1].
func FromMantAndExp(num uint64, exp int) (Dyadra, error) {
	if num&1 == 0 {
		return Max, ErrEvenMantissa
	}
	if exp < 0 || exp > maxExponent || num>>1 > mu.LowMask(exp-1) {
		return Max, ErrRange
	}
	return fromMantAndExp(num, exp), nil
}

// MustFromMantAndExp calls FromMantAndExp and panics in case of an error.
func MustFromMantAndExp(num uint64, exp int) Dyadra {
	v, err := FromMantAndExp(num, exp)
	if err != nil {
		panic(err)
	}
	return v
}

// FromFloat64 returns a value for given float64. The conversion is exact.
// Returns an error for NaN, infinities, values outside (0, 1],
// and values which need a denominator over 2^64.
func FromFloat64(f float64) (Dyadra, error) {
	if math.IsNaN(f) || f <= 0 || f > 1 {
		return Max, ErrRange
	}
	frac, e := math.Frexp(f)
	num := uint64(math.Ldexp(frac, floatMantBits))
	e -= floatMantBits
	tz := bits.TrailingZeros64(num)
	num >>= uint(tz)
	e += tz
	if -e > maxExponent {
		return Max, ErrPrecision
	}
	return fromMantAndExp(num, -e), nil
}

// MustFromFloat64 calls FromFloat64 and panics in case of an error.
func MustFromFloat64(f float64) Dyadra {
	v, err := FromFloat64(f)
	if err != nil {
		panic(err)
	}
	return v
}

// FromDecimal returns a value for given decimal. The conversion is exact.
// Returns an error for values outside (0, 1], and for values that
// cannot be written as m/2^e with e <= 64.
func FromDecimal(d decimal.Decimal) (Dyadra, error) {
	if d.Sign() <= 0 || d.GreaterThan(one) {
		return Max, ErrRange
	}
	scaled := d.Mul(wordScale)
	if !scaled.IsInteger() {
		return Max, ErrNotDyadic
	}
	// d = n/2^64, n <= 2^64.
	n := scaled.BigInt()
	tz := n.TrailingZeroBits()
	n.Rsh(n, tz)
	return fromMantAndExp(n.Uint64(), maxExponent-int(tz)), nil
}

// Bits returns the raw word.
func (v Dyadra) Bits() uint64 {
	return uint64(v)
}

// Split returns the odd numerator and the exponent, so that v = num/2^exp.
func (v Dyadra) Split() (num uint64, exp int) {
	return split(v)
}

// CheckedMul returns v*other.
// ok is false, if the exponents of v and other sum to 64 or more.
func (v Dyadra) CheckedMul(other Dyadra) (result Dyadra, ok bool) {
	m1, e1 := split(v)
	m2, e2 := split(other)
	// m1/2^e1 * m2/2^e2 = m1*m2 / 2^(e1+e2)
	e := e1 + e2
	if e >= maxExponent {
		return Max, false
	}
	// m1 <= 2^e1 - 1 for e1 > 0, and m1 == 1 for e1 == 0. The same holds for m2,
	// so m1*m2 < 2^e, and the bits below the leading one never reach it.
	return fromMantAndExp(m1*m2, e), true
}

// Mul returns v*other.
// Mul panics with ErrPrecision, if the result is not representable. See CheckedMul.
func (v Dyadra) Mul(other Dyadra) Dyadra {
	result, ok := v.CheckedMul(other)
	if !ok {
		panic(ErrPrecision)
	}
	return result
}

// Float64 returns a float64 value.
// Numerators wider than 53 bits lose precision.
func (v Dyadra) Float64() float64 {
	num, exp := split(v)
	return math.Ldexp(float64(num), -exp)
}

// Decimal returns the exact decimal value.
func (v Dyadra) Decimal() decimal.Decimal {
	num, exp := split(v)
	// num/2^exp = num*5^exp / 10^exp
	coef := new(big.Int).Exp(five, big.NewInt(int64(exp)), nil)
	coef.Mul(coef, new(big.Int).SetUint64(num))
	return decimal.NewFromBigInt(coef, -int32(exp))
}

// GoString returns debug string representation, like `Dyadra(3/2^3)`.
func (v Dyadra) GoString() string {
	num, exp := split(v)
	return fmt.Sprintf("Dyadra(%d/2^%d)", num, exp)
}

// String returns the exact decimal representation of the value.
func (v Dyadra) String() string {
	return v.Decimal().String()
}

// MarshalJSON marshals value according to current JSONMode.
// See JSONMode and JSONMode* constants.
func (v Dyadra) MarshalJSON() ([]byte, error) {
	return v.toJSON(JSONMode), nil
}

func (v Dyadra) toJSON(mode int) []byte {
	switch mode {
	case JSONModeME:
		var builder strings.Builder
		num, exp := split(v)
		builder.WriteString(jsonParts[0])
		builder.WriteString(strconv.FormatUint(num, 10))
		builder.WriteString(jsonParts[1])
		builder.WriteString(strconv.Itoa(exp))
		builder.WriteString(jsonParts[2])
		return []byte(builder.String())
	case JSONModeString:
		return []byte(strconv.Quote(v.String()))
	default: // marshal as a raw word
		return []byte(strconv.FormatUint(uint64(v), 10))
	}
}

// UnmarshalJSON unmarshals an object, a string, or a number into a value.
// Objects are read as numerator and exponent, strings as exact decimals,
// and numbers as raw words.
func (v *Dyadra) UnmarshalJSON(data []byte) (err error) {
	if len(data) == 0 {
		return Error.New("empty json")
	}
	var value Dyadra
	switch data[0] {
	case '{':
		d := struct {
			M uint64
			E int
		}{}
		if err = json.Unmarshal(data, &d); err != nil {
			return Error.Wrap(err)
		}
		value, err = FromMantAndExp(d.M, d.E)
	case '"':
		var s string
		if err = json.Unmarshal(data, &s); err != nil {
			return Error.Wrap(err)
		}
		var d decimal.Decimal
		if d, err = decimal.NewFromString(s); err != nil {
			return Error.Wrap(err)
		}
		value, err = FromDecimal(d)
	default:
		var u uint64
		if u, err = strconv.ParseUint(string(data), 10, 64); err != nil {
			return Error.Wrap(err)
		}
		value = FromBits(u)
	}
	if err != nil {
		return err
	}
	*v = value
	return nil
}
