package mintclub

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

type CurveType string

const (
	CurveLinear      CurveType = "linear"
	CurveExponential CurveType = "exponential"
	CurveLogarithmic CurveType = "logarithmic"
	CurveFlat        CurveType = "flat"
)

const DefaultStepCount = 500

func ParseCurveType(s string) (CurveType, error) {
	switch c := CurveType(s); c {
	case CurveLinear, CurveExponential, CurveLogarithmic, CurveFlat:
		return c, nil
	}
	return "", fmt.Errorf("unknown curve type %q (linear, exponential, logarithmic, flat)", s)
}

// GenerateSteps interpolates stepCount (rangeTo, price) steps between the
// initial and final price. Ranges and prices are 18-decimal base units.
// A flat curve always has a single step.
func GenerateSteps(curve CurveType, stepCount int, maxSupply, initialPrice, finalPrice string) ([]Step, error) {
	supply, err := decimal.NewFromString(maxSupply)
	if err != nil || !supply.IsPositive() {
		return nil, fmt.Errorf("invalid max supply %q", maxSupply)
	}
	p0, err := decimal.NewFromString(initialPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid initial price %q", initialPrice)
	}
	p1, err := decimal.NewFromString(finalPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid final price %q", finalPrice)
	}
	if !p0.IsPositive() || !p1.IsPositive() {
		return nil, fmt.Errorf("prices must be positive")
	}
	if curve == CurveFlat && !p0.Equal(p1) {
		return nil, fmt.Errorf("flat curve requires initial and final price to be the same")
	}

	if stepCount <= 0 {
		stepCount = DefaultStepCount
	}
	if curve == CurveFlat {
		stepCount = 1
	}

	supplyWei := supply.Shift(18).Truncate(0).BigInt()
	f0, _ := p0.Float64()
	f1, _ := p1.Float64()

	steps := make([]Step, 0, stepCount)
	for i := 0; i < stepCount; i++ {
		t := 1.0
		if stepCount > 1 {
			t = float64(i+1) / float64(stepCount)
		}

		var price decimal.Decimal
		switch curve {
		case CurveLinear:
			price = p0.Add(p1.Sub(p0).Mul(decimal.NewFromFloat(t)))
		case CurveExponential:
			price = decimal.NewFromFloat(f0 * math.Pow(f1/f0, t))
		case CurveLogarithmic:
			price = p0.Add(p1.Sub(p0).Mul(decimal.NewFromFloat(math.Log(1 + t*(math.E-1)))))
		case CurveFlat:
			price = p0
		default:
			return nil, fmt.Errorf("unknown curve type %q", curve)
		}

		rangeTo := new(big.Int).Mul(supplyWei, big.NewInt(int64(i+1)))
		rangeTo.Div(rangeTo, big.NewInt(int64(stepCount)))

		steps = append(steps, Step{
			RangeTo: rangeTo,
			Price:   price.Round(18).Shift(18).Truncate(0).BigInt(),
		})
	}
	return steps, nil
}
