package render

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"

	"budget/internal/core"
)

// ChartTitle is shown above the pie chart.
const ChartTitle = "Expense breakdown by category"

var categoryColors = map[string]string{
	"Food":          "#ff6384",
	"Transport":     "#36a2eb",
	"Entertainment": "#ffce56",
	"Bills":         "#4bc0c0",
	"Shopping":      "#9966ff",
	"Housing":       "#ff9f40",
	"Health":        "#e74c3c",
	"Education":     "#27ae60",
	"Other":         "#95a5a6",
}

// fallbackPalette colors categories outside the suggested set.
var fallbackPalette = []string{
	"#8e44ad",
	"#16a085",
	"#d35400",
	"#2c3e50",
	"#c0392b",
	"#2980b9",
	"#f1c40f",
	"#7f8c8d",
	"#e84393",
	"#00b894",
	"#6c5ce7",
	"#fd79a8",
}

// CategoryColor returns a stable color for name. Unknown categories hash
// into a fixed palette so the same name always gets the same color.
func CategoryColor(name string) string {
	if c, ok := categoryColors[name]; ok {
		return c
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return fallbackPalette[h.Sum32()%uint32(len(fallbackPalette))]
}

// Slice is one category of the pie.
type Slice struct {
	Category string
	Amount   core.Money
	// AmountText is formatted with the currency label.
	AmountText string
	Percent    int
	Color      string
	// Path is the SVG path in a viewBox of "-1 -1 2 2". Empty when Full.
	Path string
	Full bool
}

// PieChart is the expense breakdown. It is owned by a ChartSlot and must
// be destroyed before a replacement is installed.
type PieChart struct {
	Title  string
	Slices []Slice
	Total  core.Money

	destroyed bool
}

// NewPieChart groups the expenses of txs by category, in first-seen
// order, and lays out one slice per category. Income is ignored.
func NewPieChart(txs []core.Transaction, currency string) *PieChart {
	groups := core.ExpensesByCategory(txs)
	total := core.TotalExpenses(txs)

	chart := &PieChart{Title: ChartTitle, Total: total}
	if total.Cents <= 0 {
		return chart
	}

	var startCents int64
	for _, g := range groups {
		s := Slice{
			Category:   g.Name,
			Amount:     g.Amount,
			AmountText: g.Amount.Format(currency),
			Percent:    roundedPercent(g.Amount.Cents, total.Cents),
			Color:      CategoryColor(g.Name),
		}
		if g.Amount.Cents == total.Cents {
			s.Full = true
		} else {
			s.Path = slicePath(startCents, g.Amount.Cents, total.Cents)
		}
		chart.Slices = append(chart.Slices, s)
		startCents += g.Amount.Cents
	}
	return chart
}

// Destroy releases the chart's slices. A destroyed chart renders empty.
func (c *PieChart) Destroy() {
	c.destroyed = true
	c.Slices = nil
}

// Destroyed reports whether Destroy was called.
func (c *PieChart) Destroyed() bool { return c.destroyed }

// Empty reports whether there is nothing to draw.
func (c *PieChart) Empty() bool { return len(c.Slices) == 0 }

func roundedPercent(part, total int64) int {
	if total <= 0 {
		return 0
	}
	// float64 keeps part*100 from overflowing for large totals.
	return int(math.Round(float64(part) * 100 / float64(total)))
}

// slicePath draws a wedge of the unit circle starting at 12 o'clock and
// running clockwise.
func slicePath(startCents, cents, totalCents int64) string {
	start := angle(startCents, totalCents)
	end := angle(startCents+cents, totalCents)

	x1, y1 := point(start)
	x2, y2 := point(end)
	largeArc := 0
	if end-start > math.Pi {
		largeArc = 1
	}
	return fmt.Sprintf("M 0 0 L %s %s A 1 1 0 %d 1 %s %s Z",
		coord(x1), coord(y1), largeArc, coord(x2), coord(y2))
}

func angle(cents, total int64) float64 {
	return 2 * math.Pi * float64(cents) / float64(total)
}

func point(a float64) (x, y float64) {
	return math.Sin(a), -math.Cos(a)
}

func coord(v float64) string {
	if math.Abs(v) < 1e-9 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
