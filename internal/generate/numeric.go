package generate

import (
	"math"

	"github.com/dilla-go/dilla/internal/schema"
)

// DefaultIntegerRange bounds small and positive integers without a valid policy range.
var DefaultIntegerRange = [2]int{0, 32}

func (g *Generators) integer(Request) Decision {
	return Value(g.src.Between(1, 255))
}

// BoundedInteger draws from the policy's integer range, falling back to
// DefaultIntegerRange when the range is missing or invalid for the kind.
func (g *Generators) BoundedInteger(kind schema.Kind, p *schema.FieldPolicy) (int, bool) {
	lo, hi := DefaultIntegerRange[0], DefaultIntegerRange[1]
	if p == nil || len(p.IntegerRange) == 0 {
		return g.src.Between(lo, hi), true
	}
	r := p.IntegerRange
	if len(r) < 2 || r[0] > r[1] || (kind.IsPositive() && (r[0] < 0 || r[1] < 0)) {
		return g.src.Between(lo, hi), false
	}
	return g.src.Between(r[0], r[1]), true
}

func (g *Generators) boundedInteger(req Request) Decision {
	v, ok := g.BoundedInteger(req.Field.Kind, req.Policy)
	if !ok {
		g.warnOnce("range:"+fieldKey(req), "invalid integer_range, using default",
			"field", fieldKey(req), "range", req.Policy.IntegerRange, "default", DefaultIntegerRange)
	}
	return Value(v)
}

// Decimal returns a fraction plus a whole offset in [1,20], rounded to
// places when places > 0.
func (g *Generators) Decimal(places int) float64 {
	v := g.src.Float64() + float64(g.src.Between(1, 20))
	if places > 0 {
		scale := math.Pow10(places)
		v = math.Round(v*scale) / scale
	}
	return v
}

func (g *Generators) decimal(req Request) Decision {
	return Value(g.Decimal(req.Field.DecimalPlaces))
}

func (g *Generators) boolean(Request) Decision {
	return Value(g.src.Coin())
}
