package pricing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"sitepanel.org/internal/panelapi"
)

// CSVFilename is the default export file name.
const CSVFilename = "total-prices.csv"

// CSVHeader is the export header row.
var CSVHeader = []string{"Material", "Quantity", "Material Cost", "Labor Cost", "Total Price"}

// WriteCSV writes rows in the export format. Money columns are fixed to two
// decimals, missing values as 0.00.
func WriteCSV(w io.Writer, rows []panelapi.TotalPrice) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.MaterialName,
			r.Quantity.String(),
			r.MaterialCost.OrZero().StringFixed(2),
			r.LaborCost.OrZero().StringFixed(2),
			r.TotalPrice.OrZero().StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ParseCSV reads a file produced by WriteCSV.
func ParseCSV(r io.Reader) ([]panelapi.TotalPrice, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CSVHeader)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(CSVHeader, ",") {
		return nil, fmt.Errorf("csv: unexpected header %q", strings.Join(header, ","))
	}
	var out []panelapi.TotalPrice
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		out = append(out, panelapi.TotalPrice{
			MaterialName: record[0],
			Quantity:     panelapi.AmountFromString(record[1]),
			MaterialCost: panelapi.AmountFromString(record[2]),
			LaborCost:    panelapi.AmountFromString(record[3]),
			TotalPrice:   panelapi.AmountFromString(record[4]),
		})
	}
}
