// Package statement reads Revolut account statement exports (xlsx, xls, csv)
// into transaction candidates ready for import.
//
// Only settled rows are kept. Every candidate carries a deterministic external
// key so that overlapping exports of the same period import idempotently.
package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"bilancio/internal/core"

	"github.com/extrame/xls"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DefaultDescription replaces an empty statement description.
const DefaultDescription = "no description"

// Header search stops after this many leading rows.
const maxHeaderScan = 10

type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatCSV     Format = "csv"
	FormatUnknown Format = ""
)

// Result is the outcome of a successful parse.
type Result struct {
	Transactions []core.Transaction `json:"transactions"`
	// RawRows counts non-blank data rows below the header.
	RawRows int `json:"raw_rows"`
	// Skipped counts data rows dropped by the settled filter or an unreadable date.
	Skipped int `json:"skipped"`
}

// DetectFormat picks the reader from the file extension.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".csv", ".txt":
		return FormatCSV
	}
	return FormatUnknown
}

// Parse reads a statement export. The format follows the filename extension;
// an unknown extension is tried as xlsx and then as csv.
func Parse(r io.Reader, filename string) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, &ParseError{Cause: fmt.Errorf("read statement: %w", err)}
	}
	return ParseBytes(data, filename)
}

// ParseBytes is Parse over an in-memory file.
func ParseBytes(data []byte, filename string) (Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, parseErrorf("empty file")
	}

	var (
		rows [][]string
		err  error
	)
	switch DetectFormat(filename) {
	case FormatXLSX:
		rows, err = readXLSX(data)
	case FormatXLS:
		rows, err = readXLS(data)
	case FormatCSV:
		rows, err = readCSV(data)
	default:
		rows, err = readXLSX(data)
		if err != nil {
			rows, err = readCSV(data)
		}
	}
	if err != nil {
		return Result{}, &ParseError{Cause: err}
	}
	return ParseRows(rows)
}

// ParseRows applies header resolution, the settled filter and derivation to
// a grid of cells whose header row is among the first rows.
func ParseRows(rows [][]string) (Result, error) {
	headerAt := -1
	var h header
	for i := 0; i < len(rows) && i < maxHeaderScan; i++ {
		if isBlank(rows[i]) {
			continue
		}
		candidate := resolveHeader(rows[i])
		if candidate.has(colAmount) && candidate.has(colStatus) {
			headerAt, h = i, candidate
			break
		}
	}
	if headerAt < 0 {
		return Result{}, parseErrorf("no header row with amount and status columns")
	}

	res := Result{Transactions: []core.Transaction{}}
	for _, record := range rows[headerAt+1:] {
		if isBlank(record) {
			continue
		}
		res.RawRows++

		tx, ok := derive(h.row(record))
		if !ok {
			res.Skipped++
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}

	if len(res.Transactions) == 0 {
		return res, &NoValidRowsError{RawRows: res.RawRows}
	}
	return res, nil
}

// derive turns a settled row into a candidate transaction.
func derive(row Row) (core.Transaction, bool) {
	if !row.Settled() || !row.Amount.Present {
		return core.Transaction{}, false
	}
	raw, err := core.ParseDecimal(row.Amount.Value)
	if err != nil {
		return core.Transaction{}, false
	}
	at, ok := parseDateTime(row.DateTime().Value)
	if !ok {
		return core.Transaction{}, false
	}

	var balance *decimal.Decimal
	if row.Balance.Present {
		if b, err := core.ParseDecimal(row.Balance.Value); err == nil {
			balance = &b
		}
	}

	description := row.Description.Value
	if description == "" {
		description = DefaultDescription
	}
	currency := strings.ToUpper(row.Currency.Value)
	if currency == "" {
		currency = core.DefaultCurrency
	}

	amount := core.MoneyFromDecimal(raw)
	return core.Transaction{
		ExternalKey: ExternalKey(at, raw, balance, row.Description.Value),
		Date:        core.DateOf(at),
		Description: description,
		Amount:      amount.Abs(),
		Currency:    currency,
		Type:        core.TypeFromSign(int64(raw.Sign())),
	}, true
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readXLS(data []byte) (rows [][]string, err error) {
	// The xls reader panics on some malformed BIFF records.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("read xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("xls has no sheets")
	}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	if sniffSemicolon(data) {
		r.Comma = ';'
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// sniffSemicolon reports whether the first line is semicolon separated, as in
// exports produced with an Italian locale.
func sniffSemicolon(data []byte) bool {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	return bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(","))
}
