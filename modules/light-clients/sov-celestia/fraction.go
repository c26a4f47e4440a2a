package sovcelestia

import (
	"fmt"

	cmtmath "github.com/cometbft/cometbft/libs/math"

	sdkmath "cosmossdk.io/math"
)

// DefaultTrustLevel is the trust level used when a client does not choose one.
var DefaultTrustLevel = NewFraction(2, 3)

// Fraction is a trust level expressed as numerator over denominator.
type Fraction struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// NewFraction returns a new Fraction instance.
func NewFraction(numerator, denominator uint64) Fraction {
	return Fraction{
		Numerator:   numerator,
		Denominator: denominator,
	}
}

// NewFractionFromTm returns a new Fraction instance from a cmtmath.Fraction
func NewFractionFromTm(f cmtmath.Fraction) Fraction {
	return NewFraction(f.Numerator, f.Denominator)
}

// ToTendermint converts Fraction to cmtmath.Fraction
func (f Fraction) ToTendermint() cmtmath.Fraction {
	return cmtmath.Fraction{
		Numerator:   f.Numerator,
		Denominator: f.Denominator,
	}
}

// String implements fmt.Stringer.
func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// Validate checks that the fraction lies in the half open interval (1/3, 1].
func (f Fraction) Validate() error {
	if f.Denominator == 0 {
		return fmt.Errorf("trust level denominator cannot be zero")
	}
	if f.Numerator > f.Denominator {
		return fmt.Errorf("trust level %s cannot be greater than 1", f)
	}

	num := sdkmath.NewIntFromUint64(f.Numerator).MulRaw(3)
	if num.LTE(sdkmath.NewIntFromUint64(f.Denominator)) {
		return fmt.Errorf("trust level %s must be greater than 1/3", f)
	}
	return nil
}

// Reached reports whether part/total >= f without losing precision.
func (f Fraction) Reached(part, total int64) bool {
	if total <= 0 {
		return false
	}
	lhs := sdkmath.NewInt(part).Mul(sdkmath.NewIntFromUint64(f.Denominator))
	rhs := sdkmath.NewInt(total).Mul(sdkmath.NewIntFromUint64(f.Numerator))
	return lhs.GTE(rhs)
}
