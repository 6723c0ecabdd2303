package backtest

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV streams the result series plus a totals row, for the export
// endpoint.
func (res Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"date", "matched",
		"actual_spend_jpy", "actual_sales_jpy", "actual_acos",
		"sim_spend_jpy", "sim_sales_jpy", "sim_acos",
		"spend_delta_jpy", "sales_delta_jpy",
	}); err != nil {
		return err
	}
	for _, pt := range res.Series {
		if err := cw.Write([]string{
			pt.Date, strconv.Itoa(pt.Matched),
			f(pt.ActualSpend), f(pt.ActualSales), f(pt.ActualAcos),
			f(pt.SimSpend), f(pt.SimSales), f(pt.SimAcos),
			f(pt.SpendDelta), f(pt.SalesDelta),
		}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{
		"TOTAL", strconv.Itoa(res.Meta.MatchedCount),
		f(res.Actual.SpendJPY), f(res.Actual.SalesJPY), f(res.Actual.Acos),
		f(res.Simulated.SpendJPY), f(res.Simulated.SalesJPY), f(res.Simulated.Acos),
		f(res.Improvement.SpendDeltaJPY), f(res.Improvement.SalesDeltaJPY),
	}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
