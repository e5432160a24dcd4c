package finance

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"quantDashboard/internal/analytics"
)

const (
	chartWidth  = 900
	chartHeight = 500
)

var errNoPoints = errors.New("not enough data points to chart")

// xLabels formats timestamps in UTC with a layout that fits the span.
func xLabels(ts []time.Time) []string {
	out := make([]string, len(ts))
	if len(ts) == 0 {
		return out
	}
	span := ts[len(ts)-1].Sub(ts[0])
	layout := "Jan 02"
	switch {
	case span <= day:
		layout = "15:04"
	case span <= 7*day:
		layout = "Jan 02 15:04"
	}
	for i, t := range ts {
		out[i] = t.UTC().Format(layout)
	}
	return out
}

func splitNumber(n int) int {
	if n <= 8 {
		return n - 1
	}
	return 8
}

// yRange pads the extremes of lines by 5%, at least 0.2% of the top value.
func yRange(lines ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range lines {
		for _, v := range l {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	pad := (hi - lo) * 0.05
	if floor := math.Abs(hi) * 0.002; pad < floor {
		pad = floor
	}
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}

func scale(values []float64, f float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * f
	}
	return out
}

func rebase(values []float64, base float64) []float64 {
	if len(values) == 0 || values[0] == 0 {
		return values
	}
	return scale(values, base/values[0])
}

// renderLines draws same-length series on one left axis.
func renderLines(title, subtitle string, ts []time.Time, names []string, values [][]float64) ([]byte, error) {
	if len(ts) < 2 {
		return nil, errNoPoints
	}
	yMin, yMax := yRange(values...)
	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels(ts), BoundaryGap: charts.FalseFlag(), SplitNumber: splitNumber(len(ts))}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// RenderValueChart draws the buy & hold value curve with its drawdown in
// percent on a second axis.
func RenderValueChart(v *AssetView) ([]byte, error) {
	value := v.Asset.Value
	if value.Len() < 2 {
		return nil, errNoPoints
	}
	dd := scale(v.Drawdown.Values, 100)
	leftMin, leftMax := yRange(value.Values)
	rightMin, rightMax := yRange(dd, []float64{0})

	names := []string{"Value", "Drawdown %"}
	seriesList := charts.NewSeriesListDataFromValues([][]float64{value.Values, dd}, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
		seriesList[i].AxisIndex = i
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(AssetTitle(v), "Buy & Hold value • drawdown %"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels(value.Timestamps), BoundaryGap: charts.FalseFlag(), SplitNumber: splitNumber(value.Len())}),
		charts.YAxisOptionFunc(
			charts.YAxisOption{Min: &leftMin, Max: &leftMax, DivideCount: 5},
			charts.YAxisOption{Min: &rightMin, Max: &rightMax, DivideCount: 5, Position: charts.PositionRight},
		),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// RenderStrategyChart compares the strategy value curve with buy & hold.
func RenderStrategyChart(v *AssetView) ([]byte, error) {
	if v.Strategy == nil {
		return nil, errors.New("no strategy result to chart")
	}
	return renderLines(AssetTitle(v), v.Strategy.Strategy+" vs Buy & Hold",
		v.Asset.Value.Timestamps,
		[]string{"Buy & Hold", v.Strategy.Strategy},
		[][]float64{v.Asset.Value.Values, v.Strategy.Value.Values},
	)
}

// RenderNormalizedChart draws every asset rebased to 100 together with the
// portfolio value on the same base.
func RenderNormalizedChart(v *PortfolioView) ([]byte, error) {
	p := v.Portfolio
	names := make([]string, 0, len(p.Symbols)+1)
	values := make([][]float64, 0, len(p.Symbols)+1)
	for _, s := range p.Symbols {
		names = append(names, s)
		values = append(values, p.Normalized[s].Values)
	}
	names = append(names, "Portfolio")
	values = append(values, rebase(p.Value.Values, 100))
	return renderLines("Portfolio • "+strings.ToUpper(v.Interval)+" • "+strings.ToUpper(v.Window),
		"indexed to 100", p.Value.Timestamps, names, values)
}

// RenderCorrelationTable draws the correlation matrix as a table.
func RenderCorrelationTable(c analytics.CorrelationMatrix) ([]byte, error) {
	if len(c.Symbols) == 0 {
		return nil, errNoPoints
	}
	header := append([]string{""}, c.Symbols...)
	rows := make([][]string, len(c.Symbols))
	for i, s := range c.Symbols {
		row := []string{s}
		for j := range c.Symbols {
			row = append(row, c.Values[i][j].Format("%.2f"))
		}
		rows[i] = row
	}
	painter, err := charts.TableRender(header, rows, map[int]int{0: 2})
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}
