package finance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"quantDashboard/internal/storage"
)

// Usage categories recorded by the bot.
const (
	CategoryAsset     = "asset"
	CategoryStrategy  = "strategy"
	CategoryPortfolio = "portfolio"
	CategoryInsight   = "insight"
	CategoryAdmin     = "admin"
)

var errNoUsage = errors.New("no usage data available")

func sortedCategories[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// RenderUsagePie draws the share of commands per category.
func RenderUsagePie(stats map[string]*storage.UsageStats, days int) ([]byte, error) {
	if len(stats) == 0 {
		return nil, errNoUsage
	}
	categories := sortedCategories(stats)
	values := make([]float64, len(categories))
	total := 0
	for i, c := range categories {
		values[i] = float64(stats[c].Count)
		total += stats[c].Count
	}
	labels := make([]string, len(categories))
	for i, c := range categories {
		labels[i] = fmt.Sprintf("%s (%.1f%%)", c, values[i]/float64(total)*100)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Command Usage Distribution (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// RenderUsageSeries draws command counts per category over time. Buckets
// missing for a category count as zero.
func RenderUsageSeries(series map[string][]storage.TimeSeriesPoint, days int) ([]byte, error) {
	if len(series) == 0 {
		return nil, errNoUsage
	}
	seen := map[int64]struct{}{}
	var stamps []int64
	for _, points := range series {
		for _, p := range points {
			if _, ok := seen[p.Timestamp]; !ok {
				seen[p.Timestamp] = struct{}{}
				stamps = append(stamps, p.Timestamp)
			}
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	labels := make([]string, len(stamps))
	for i, ts := range stamps {
		t := time.Unix(ts, 0).UTC()
		switch {
		case days <= 1:
			labels[i] = t.Format("15:04")
		case days <= 7:
			labels[i] = t.Format("Mon 15:04")
		default:
			labels[i] = t.Format("01/02")
		}
	}

	categories := sortedCategories(series)
	values := make([][]float64, 0, len(categories))
	for _, c := range categories {
		counts := make(map[int64]int, len(series[c]))
		for _, p := range series[c] {
			counts[p.Timestamp] = p.Count
		}
		row := make([]float64, len(stamps))
		for i, ts := range stamps {
			row[i] = float64(counts[ts])
		}
		values = append(values, row)
	}

	p, err := charts.LineRender(
		values,
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels}),
		charts.TitleTextOptionFunc(fmt.Sprintf("Command Usage Over Time (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: categories,
			Top:  charts.PositionTop,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// FormatUsage summarizes usage per category with the top five commands of
// each.
func FormatUsage(stats map[string]*storage.UsageStats, days int) string {
	if len(stats) == 0 {
		return "No usage data available for the specified period."
	}
	total := 0
	for _, st := range stats {
		total += st.Count
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Usage (%d days)\n\nTotal commands: %d\n\n", days, total)
	for _, c := range sortedCategories(stats) {
		st := stats[c]
		fmt.Fprintf(&b, "%s (%d commands, %.1f%%)\n", categoryName(c), st.Count, float64(st.Count)/float64(total)*100)

		type cmdCount struct {
			cmd   string
			count int
		}
		cmds := make([]cmdCount, 0, len(st.Commands))
		for cmd, n := range st.Commands {
			cmds = append(cmds, cmdCount{cmd, n})
		}
		sort.Slice(cmds, func(i, j int) bool {
			if cmds[i].count != cmds[j].count {
				return cmds[i].count > cmds[j].count
			}
			return cmds[i].cmd < cmds[j].cmd
		})
		for i, cc := range cmds {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "  • %s: %d\n", cc.cmd, cc.count)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func categoryName(category string) string {
	switch category {
	case CategoryAsset:
		return "📈 Asset Analysis"
	case CategoryStrategy:
		return "🤖 Strategy Backtests"
	case CategoryPortfolio:
		return "💼 Portfolio Analysis"
	case CategoryInsight:
		return "📝 AI Insights"
	case CategoryAdmin:
		return "🛠 History & Help"
	default:
		return category
	}
}
