package confirmation

import "github.com/shopspring/decimal"

// MainContentOrderSummary titles the order list on confirmation screens.
const MainContentOrderSummary = "Order Summary"

// Layout is the page header shared by the licensing and traffic-rules screens.
type Layout struct {
	Title            string `json:"title"`
	SubTitle         string `json:"subTitle"`
	MainContentTitle string `json:"mainContentTitle"`
	Heading          string `json:"heading,omitempty"`
}

// LayoutFor builds the confirmation screen header for a resolved config.
func LayoutFor(cfg Config) Layout {
	return Layout{
		Title:            cfg.Title,
		SubTitle:         cfg.SubTitle,
		MainContentTitle: MainContentOrderSummary,
	}
}

// HeadingText renders the header line: the title alone, or "title/ heading"
// on nested pages.
func (l Layout) HeadingText() string {
	if l.Heading == "" {
		return l.Title
	}
	return l.Title + "/ " + l.Heading
}

// Total sums amount × quantity over items; a zero quantity counts as one.
func Total(items []OrderItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		sum = sum.Add(decimal.NewFromFloat(it.Amount).Mul(decimal.NewFromInt(int64(qty))))
	}
	f, _ := sum.Round(2).Float64()
	return f
}
