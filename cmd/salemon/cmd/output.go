package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	apiclient "github.com/donaldgifford/sale-monitor/internal/api/client"
	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printProductsTable(products []apiclient.ProductView) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("NAME\tLAST PRICE\tTARGET\tDISCOUNT %%\tENABLED\tLAST CHECK\n")
	for i := range products {
		p := &products[i]
		lastCheck := "-"
		if p.LastCheck != nil {
			lastCheck = p.LastCheck.Format("2006-01-02 15:04:05")
		}
		tw.writef("%s\t%s\t%s\t%s\t%v\t%s\n",
			p.Name,
			formatPrice(p.LastPrice),
			formatPrice(p.TargetPrice),
			formatFloat(p.DiscountThreshold),
			p.Enabled,
			lastCheck,
		)
	}
	return tw.finish()
}

func printHistoryTable(records []domain.HistoryRecord) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("CHECKED AT\tPRICE\tOUTCOME\n")
	for i := range records {
		tw.writef("%s\t%s\t%s\n",
			records[i].CheckedAt.Format("2006-01-02 15:04:05"),
			formatPrice(records[i].Price),
			records[i].Outcome,
		)
	}
	return tw.finish()
}

func printStatsDetail(name string, stats *domain.PriceStats) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("Product:\t%s\n", name)
	tw.writef("Samples:\t%d\n", stats.Count)
	tw.writef("Min:\t$%.2f\n", stats.Min)
	tw.writef("Max:\t$%.2f\n", stats.Max)
	tw.writef("Avg:\t$%.2f\n", stats.Avg)
	return tw.finish()
}

func printChangesTable(changes []domain.PriceChange) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("AT\tOLD\tNEW\tDELTA\n")
	for i := range changes {
		c := &changes[i]
		tw.writef("%s\t$%.2f\t$%.2f\t%+.2f\n",
			c.At.Format("2006-01-02 15:04:05"),
			c.OldPrice,
			c.NewPrice,
			c.NewPrice-c.OldPrice,
		)
	}
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *p)
}

func formatFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *f)
}
