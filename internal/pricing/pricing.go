package pricing

import "math"

// Converter converts monetary amounts between currencies using static rates.
// Rates are expressed relative to the reference currency (rate[reference] == 1
// by convention). An unknown currency code falls back to a neutral rate of 1;
// catalog validation keeps that fallback unreachable for configured regions.
type Converter struct {
	Reference string
	Rates     map[string]float64
}

// Totals is the priced breakdown of an order in the buyer's currency.
type Totals struct {
	UnitPrice float64
	Total     float64
	Deposit   float64
	Balance   float64
}

// Convert converts amount between two currencies, pivoting through the
// reference currency. Equal currencies are an identity. The result is rounded
// to 2 decimals.
func (c Converter) Convert(amount float64, from, to string) float64 {
	if from == to {
		return amount
	}
	ref := amount / c.rate(from)
	return round2(ref * c.rate(to))
}

// ComputeTotals prices a reference-currency tier for the given quantity and
// deposit percentage in the target currency. Each figure is rounded to 2
// decimals at the point of computation, matching what the user is shown.
func (c Converter) ComputeTotals(price float64, quantity int, depositPercent float64, currency string) Totals {
	unit := c.Convert(price, c.Reference, currency)
	total := round2(unit * float64(quantity))
	deposit := round2(total * depositPercent / 100)
	balance := round2(total - deposit)
	return Totals{
		UnitPrice: unit,
		Total:     total,
		Deposit:   deposit,
		Balance:   balance,
	}
}

func (c Converter) rate(currency string) float64 {
	if r, ok := c.Rates[currency]; ok {
		return r
	}
	return 1
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
