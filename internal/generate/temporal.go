package generate

import "time"

// now is swapped in tests.
var now = time.Now

func (g *Generators) date(Request) Decision     { return Value(now()) }
func (g *Generators) dateTime(Request) Decision { return Value(now()) }

// timeOfDay keeps only hours, minutes and seconds.
func (g *Generators) timeOfDay(Request) Decision {
	return Value(now().Format(time.TimeOnly))
}
