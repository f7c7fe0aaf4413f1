package tariff

import (
	"fmt"
	"sort"
	"time"

	"github.com/bher20/billoptimizer/internal/storage"
)

// SlabsFromTable flattens t into storage rows, one per band. MinUnits is the
// first whole unit billed in the band.
func SlabsFromTable(t Table, effective time.Time) []storage.TariffSlab {
	var out []storage.TariffSlab
	for _, c := range Categories() {
		s, ok := t[c]
		if !ok {
			continue
		}
		for i, b := range s.Bands {
			row := storage.TariffSlab{
				ConsumerType:  string(c),
				MinUnits:      s.lowerBound(i) + 1,
				Rate:          b.Rate,
				Description:   b.Description,
				IsActive:      true,
				EffectiveDate: effective,
			}
			if !b.Unbounded() {
				upTo := b.UpTo
				row.MaxUnits = &upTo
			}
			out = append(out, row)
		}
	}
	return out
}

// TableFromSlabs rebuilds a validated table from active storage rows.
func TableFromSlabs(rows []storage.TariffSlab) (Table, error) {
	grouped := make(map[Category][]storage.TariffSlab)
	for _, r := range rows {
		if !r.IsActive {
			continue
		}
		c, err := ParseCategory(r.ConsumerType)
		if err != nil {
			return nil, fmt.Errorf("slab %d: %w", r.ID, err)
		}
		grouped[c] = append(grouped[c], r)
	}

	t := make(Table, len(grouped))
	for c, list := range grouped {
		sort.Slice(list, func(i, j int) bool { return list[i].MinUnits < list[j].MinUnits })
		s := Schedule{Category: c}
		for _, r := range list {
			b := Band{Rate: r.Rate, Description: r.Description}
			if r.MaxUnits != nil {
				b.UpTo = *r.MaxUnits
			}
			s.Bands = append(s.Bands, b)
		}
		t[c] = s
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
