package market

// DefaultCatalog returns the canonical seed instruments.
func DefaultCatalog() []Instrument {
	return []Instrument{
		{Name: "Maize", Price: 42.00, Unit: "per 90kg", Trend: TrendDown, ChangePercentage: -5.4, InputCostIndex: 115},
		{Name: "Soybean", Price: 95.00, Unit: "per kg", Trend: TrendStable, ChangePercentage: 0.2, InputCostIndex: 108},
		{Name: "Wheat", Price: 58.00, Unit: "per bushel", Trend: TrendUp, ChangePercentage: 8.1, InputCostIndex: 112},
		{Name: "Coffee (Arabica)", Price: 4.80, Unit: "per kg", Trend: TrendUp, ChangePercentage: 15.3, InputCostIndex: 140},
		{Name: "Cotton", Price: 0.85, Unit: "per lb", Trend: TrendDown, ChangePercentage: -2.1, InputCostIndex: 125},
		{Name: "Rice", Price: 18.50, Unit: "per cwt", Trend: TrendStable, ChangePercentage: 0.5, InputCostIndex: 105},
		{Name: "Cocoa", Price: 3400.00, Unit: "per ton", Trend: TrendUp, ChangePercentage: 4.2, InputCostIndex: 130},
		{Name: "Fertilizer (UREA)", Price: 120.00, Unit: "per 50kg", Trend: TrendUp, ChangePercentage: 12.5, InputCostIndex: 100},
	}
}

// Complete appends every default whose name is absent from catalog.
// Existing entries are never removed or reordered; the input slice is not modified.
func Complete(catalog, defaults []Instrument) []Instrument {
	present := make(map[string]struct{}, len(catalog))
	for _, in := range catalog {
		present[in.Name] = struct{}{}
	}

	out := make([]Instrument, len(catalog), len(catalog)+len(defaults))
	copy(out, catalog)
	for _, d := range defaults {
		if _, ok := present[d.Name]; ok {
			continue
		}
		present[d.Name] = struct{}{}
		out = append(out, d)
	}
	return out
}
