package appliance

import (
	"errors"
	"sort"

	"github.com/samber/lo"
)

// ErrUnknownAppliance is returned for an id missing from the catalog.
var ErrUnknownAppliance = errors.New("unknown appliance")

// Appliance is a catalog entry with its typical rated power draw.
type Appliance struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Watts    int    `json:"watts"`
}

var catalog = map[string]Appliance{
	"ac":              {ID: "ac", Name: "Air Conditioner", Category: "cooling", Watts: 1500},
	"fridge":          {ID: "fridge", Name: "Refrigerator", Category: "essential", Watts: 150},
	"fan":             {ID: "fan", Name: "Ceiling Fan", Category: "cooling", Watts: 75},
	"light":           {ID: "light", Name: "LED Light", Category: "lighting", Watts: 20},
	"tv":              {ID: "tv", Name: "Television", Category: "entertainment", Watts: 100},
	"computer":        {ID: "computer", Name: "Computer", Category: "work", Watts: 200},
	"washing_machine": {ID: "washing_machine", Name: "Washing Machine", Category: "laundry", Watts: 500},
	"iron":            {ID: "iron", Name: "Electric Iron", Category: "laundry", Watts: 1000},
	"microwave":       {ID: "microwave", Name: "Microwave Oven", Category: "kitchen", Watts: 1000},
	"water_heater":    {ID: "water_heater", Name: "Water Heater", Category: "heating", Watts: 2000},
	"oven":            {ID: "oven", Name: "Electric Oven", Category: "kitchen", Watts: 2000},
	"dishwasher":      {ID: "dishwasher", Name: "Dishwasher", Category: "kitchen", Watts: 1200},
	"dryer":           {ID: "dryer", Name: "Clothes Dryer", Category: "laundry", Watts: 3000},
}

// Catalog returns every known appliance ordered by id.
func Catalog() []Appliance {
	list := lo.Values(catalog)
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (Appliance, bool) {
	a, ok := catalog[id]
	return a, ok
}
