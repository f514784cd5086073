// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

import (
	"fmt"
	"math"
	"math/big"
)

// Rat is an exact rational number used for every time and execution amount
// in this package. Rat values are immutable: arithmetic returns a new value
// and never modifies its operands, so a Rat may be copied and shared freely.
// The zero value is 0.
type Rat struct {
	r *big.Rat
}

func (x Rat) rat() *big.Rat {
	if x.r == nil {
		return new(big.Rat)
	}
	return x.r
}

func wrap(r *big.Rat) Rat {
	return Rat{r: r}
}

// Int returns the integer n as a Rat.
func Int(n int64) Rat {
	return wrap(new(big.Rat).SetInt64(n))
}

// Frac returns a/b. It panics if b is zero.
func Frac(a, b int64) Rat {
	if b == 0 {
		panic("simrt: zero denominator")
	}
	return wrap(big.NewRat(a, b))
}

// FloatRat returns the exact value of the binary floating-point number f. It
// panics if f is NaN or infinite.
func FloatRat(f float64) Rat {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		panic(fmt.Sprintf("simrt: cannot represent %v as a rational", f))
	}
	return wrap(new(big.Rat).SetFloat64(f))
}

// ParseRat parses decimal ("2.5", "1e-3") or fractional ("5/2") notation.
func ParseRat(s string) (Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Rat{}, fmt.Errorf("simrt: cannot parse %q as a rational number", s)
	}
	return wrap(r), nil
}

// MustRat is like ParseRat but panics on malformed input.
func MustRat(s string) Rat {
	r, err := ParseRat(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (x Rat) Add(y Rat) Rat { return wrap(new(big.Rat).Add(x.rat(), y.rat())) }
func (x Rat) Sub(y Rat) Rat { return wrap(new(big.Rat).Sub(x.rat(), y.rat())) }
func (x Rat) Mul(y Rat) Rat { return wrap(new(big.Rat).Mul(x.rat(), y.rat())) }
func (x Rat) Neg() Rat      { return wrap(new(big.Rat).Neg(x.rat())) }

// Quo returns x/y. It panics if y is zero.
func (x Rat) Quo(y Rat) Rat {
	if y.Sign() == 0 {
		panic("simrt: division by zero")
	}
	return wrap(new(big.Rat).Quo(x.rat(), y.rat()))
}

// Cmp returns -1, 0, or +1 depending on whether x is less than, equal to, or
// greater than y.
func (x Rat) Cmp(y Rat) int    { return x.rat().Cmp(y.rat()) }
func (x Rat) Less(y Rat) bool  { return x.Cmp(y) < 0 }
func (x Rat) Equal(y Rat) bool { return x.Cmp(y) == 0 }
func (x Rat) Sign() int        { return x.rat().Sign() }
func (x Rat) IsZero() bool     { return x.Sign() == 0 }

// IsInt reports whether x has denominator 1.
func (x Rat) IsInt() bool { return x.rat().IsInt() }

// Num returns a copy of the numerator of x in lowest terms.
func (x Rat) Num() *big.Int { return new(big.Int).Set(x.rat().Num()) }

// Denom returns a copy of the (positive) denominator of x in lowest terms.
func (x Rat) Denom() *big.Int { return new(big.Int).Set(x.rat().Denom()) }

// Floor returns the greatest integer not greater than x.
func (x Rat) Floor() Rat {
	r := x.rat()
	// Euclidean division with a positive divisor rounds toward -Inf.
	q := new(big.Int).Div(r.Num(), r.Denom())
	return wrap(new(big.Rat).SetInt(q))
}

// Ceil returns the least integer not less than x.
func (x Rat) Ceil() Rat {
	f := x.Floor()
	if f.Equal(x) {
		return f
	}
	return f.Add(Int(1))
}

// Float64 returns the nearest float64 to x.
func (x Rat) Float64() float64 {
	f, _ := x.rat().Float64()
	return f
}

// String formats x as an integer when it has one and as "a/b" otherwise.
func (x Rat) String() string {
	return x.rat().RatString()
}

// MarshalText implements encoding.TextMarshaler.
func (x Rat) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseRat.
func (x *Rat) UnmarshalText(text []byte) error {
	r, err := ParseRat(string(text))
	if err != nil {
		return err
	}
	*x = r
	return nil
}

// MinRat returns the smaller of x and y.
func MinRat(x, y Rat) Rat {
	if y.Less(x) {
		return y
	}
	return x
}

// MaxRat returns the larger of x and y.
func MaxRat(x, y Rat) Rat {
	if x.Less(y) {
		return y
	}
	return x
}

// lcmRat returns the least positive rational that is an integer multiple of
// both x and y, which must be positive.
func lcmRat(x, y Rat) Rat {
	xr, yr := x.rat(), y.rat()
	num := lcmInt(xr.Num(), yr.Num())
	den := new(big.Int).GCD(nil, nil, xr.Denom(), yr.Denom())
	return wrap(new(big.Rat).SetFrac(num, den))
}

func lcmInt(a, b *big.Int) *big.Int {
	g := new(big.Int).GCD(nil, nil, a, b)
	l := new(big.Int).Quo(a, g)
	return l.Mul(l, b)
}
