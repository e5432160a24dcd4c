// Package report produces the daily CSV metrics report.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"quantDashboard/internal/analytics"
)

// Row is one line of the daily report. Percent columns are percentages;
// undefined metrics are written as empty cells.
type Row struct {
	Date                 string           `csv:"date"`
	Assets               string           `csv:"assets"`
	OpenPrice            analytics.Metric `csv:"open_price"`
	ClosePrice           analytics.Metric `csv:"close_price"`
	PeriodReturn         float64          `csv:"period_return_pct"`
	TotalReturn          float64          `csv:"total_return_pct"`
	AnnualizedVolatility analytics.Metric `csv:"annualized_volatility_pct"`
	MaxDrawdown          float64          `csv:"max_drawdown_pct"`
	SharpeRatio          analytics.Metric `csv:"sharpe_ratio"`
	Observations         int              `csv:"observations"`
}

// FileName is the report file for date.
func FileName(date time.Time) string {
	return "report_" + date.UTC().Format("2006-01-02") + ".csv"
}

// WriteCSV writes rows to dir/report_YYYY-MM-DD.csv, creating dir and
// replacing any earlier report for the same date.
func WriteCSV(dir string, date time.Time, rows []Row) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, FileName(date))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := encode(f, rows); err != nil {
		return "", err
	}
	return path, nil
}

// encode writes rows to w and closes it. A failed close is reported: the
// file may be incomplete.
func encode(w io.WriteCloser, rows []Row) error {
	if err := gocsv.Marshal(&rows, w); err != nil {
		_ = w.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}
