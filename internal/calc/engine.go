// Package calc derives invoice totals from line items.
//
// Each line amount is rounded half up to two places before summation. Tax is
// computed once per item rate on the rounded basis of the lines at that rate,
// so a single-rate invoice is taxed on its rounded subtotal. The same totals
// value is then shared by every projection of the invoice.
package calc

import (
	"fmt"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-generator/internal/decimal"
	"github.com/rezonia/invoice-generator/internal/model"
)

// Compute returns the totals for items. Tax follows the rate of each item;
// taxRate is the document rate recorded alongside.
// The input slice is never modified.
func Compute(items []model.LineItem, taxRate decimal.Decimal) (*model.ComputedTotals, error) {
	if len(items) == 0 {
		return nil, model.NewInvalidAmountError("items", nil, "invoice has no items")
	}

	lines := make([]decimal.Decimal, len(items))
	for i, item := range items {
		lines[i] = LineAmount(item)
	}

	subtotal := money.Sum(lines)
	taxes := TaxBreakdown(items, lines)
	tax := money.Zero
	for _, t := range taxes {
		tax = tax.Add(t.Amount)
	}

	return &model.ComputedTotals{
		Lines:     lines,
		Subtotal:  subtotal,
		TaxRate:   taxRate,
		Taxes:     taxes,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}, nil
}

// TaxBreakdown groups line amounts by item rate, in order of first
// appearance, and computes the tax of each group on its basis.
func TaxBreakdown(items []model.LineItem, lines []decimal.Decimal) []model.TaxSubtotal {
	var taxes []model.TaxSubtotal
	for i, item := range items {
		idx := -1
		for j := range taxes {
			if taxes[j].Rate.Equal(item.TaxRate) {
				idx = j
				break
			}
		}
		if idx < 0 {
			taxes = append(taxes, model.TaxSubtotal{Rate: item.TaxRate, Basis: money.Zero})
			idx = len(taxes) - 1
		}
		taxes[idx].Basis = taxes[idx].Basis.Add(lines[i])
	}
	for i := range taxes {
		taxes[i].Amount = money.CalculatePercentage(taxes[i].Basis, taxes[i].Rate)
	}
	return taxes
}

// ComputeSnapshot computes totals for a snapshot using its document rate
func ComputeSnapshot(snap *model.InvoiceSnapshot) (*model.ComputedTotals, error) {
	if snap == nil {
		return nil, model.NewInvalidAmountError("snapshot", nil, "nil snapshot")
	}
	return Compute(snap.Items, snap.TaxRate)
}

// LineAmount is quantity times unit price, rounded to 2 places
func LineAmount(item model.LineItem) decimal.Decimal {
	return money.Mul(item.Quantity, item.UnitPrice)
}

// Discrepancies lists every way totals differ from what Compute derives
// from items. An empty result means the totals are consistent.
func Discrepancies(items []model.LineItem, totals *model.ComputedTotals) []string {
	if totals == nil {
		return []string{"no totals"}
	}
	expected, err := Compute(items, totals.TaxRate)
	if err != nil {
		return []string{err.Error()}
	}

	var problems []string
	if len(totals.Lines) != len(expected.Lines) {
		problems = append(problems, fmt.Sprintf("line count %d, expected %d", len(totals.Lines), len(expected.Lines)))
	} else {
		for i := range expected.Lines {
			if !totals.Lines[i].Equal(expected.Lines[i]) {
				problems = append(problems, fmt.Sprintf("line %d is %s, expected %s",
					i+1, money.Fixed(totals.Lines[i]), money.Fixed(expected.Lines[i])))
			}
		}
	}
	if !totals.Subtotal.Equal(expected.Subtotal) {
		problems = append(problems, fmt.Sprintf("subtotal is %s, expected %s",
			money.Fixed(totals.Subtotal), money.Fixed(expected.Subtotal)))
	}
	problems = append(problems, breakdownDiscrepancies(totals.Taxes, expected.Taxes)...)
	if !totals.TaxAmount.Equal(expected.TaxAmount) {
		problems = append(problems, fmt.Sprintf("tax is %s, expected %s",
			money.Fixed(totals.TaxAmount), money.Fixed(expected.TaxAmount)))
	}
	if !totals.Total.Equal(expected.Total) {
		problems = append(problems, fmt.Sprintf("total is %s, expected %s",
			money.Fixed(totals.Total), money.Fixed(expected.Total)))
	}
	return problems
}

// breakdownDiscrepancies matches breakdowns by rate; an absent breakdown on
// the checked side is skipped.
func breakdownDiscrepancies(got, want []model.TaxSubtotal) []string {
	if len(got) == 0 {
		return nil
	}
	var problems []string
	for _, w := range want {
		found := false
		for _, g := range got {
			if !g.Rate.Equal(w.Rate) {
				continue
			}
			found = true
			if !g.Basis.Equal(w.Basis) {
				problems = append(problems, fmt.Sprintf("tax basis at %s is %s, expected %s",
					money.FormatRate(w.Rate), money.Fixed(g.Basis), money.Fixed(w.Basis)))
			}
			if !g.Amount.Equal(w.Amount) {
				problems = append(problems, fmt.Sprintf("tax at %s is %s, expected %s",
					money.FormatRate(w.Rate), money.Fixed(g.Amount), money.Fixed(w.Amount)))
			}
		}
		if !found {
			problems = append(problems, fmt.Sprintf("no tax breakdown at %s", money.FormatRate(w.Rate)))
		}
	}
	for _, g := range got {
		found := false
		for _, w := range want {
			if g.Rate.Equal(w.Rate) {
				found = true
				break
			}
		}
		if !found {
			problems = append(problems, fmt.Sprintf("unexpected tax breakdown at %s", money.FormatRate(g.Rate)))
		}
	}
	return problems
}
