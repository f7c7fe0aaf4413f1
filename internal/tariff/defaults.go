package tariff

import "github.com/shopspring/decimal"

// DefaultTable returns the NEPRA residential slab table. Each call returns a
// fresh copy so callers may modify it.
func DefaultTable() Table {
	return Table{
		Lifeline: {
			Category: Lifeline,
			Bands: []Band{
				band(100, "3.95", "Ideal for small families, try to stay below 100 units"),
				band(0, "7.74", "You lose lifeline benefits above 100 units"),
			},
		},
		Protected: {
			Category: Protected,
			Bands: []Band{
				band(100, "7.74", "Good for medium consumption households"),
				band(200, "10.06", "Stay below 200 units for optimal rates"),
				band(0, "12.15", "Crossing 200 units increases cost significantly"),
			},
		},
		General: {
			Category: General,
			Bands: []Band{
				band(100, "16.48", "High base rate - optimize usage patterns"),
				band(200, "22.95", "Focus on energy efficiency measures"),
				band(300, "26.66", "AC usage is major contributor at this level"),
				band(700, "32.03", "Time to audit and optimize all appliances"),
				band(0, "35.53", "High consumption - professional audit recommended"),
			},
		},
	}
}

func band(upTo float64, rate, description string) Band {
	return Band{UpTo: upTo, Rate: decimal.RequireFromString(rate), Description: description}
}
