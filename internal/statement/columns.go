package statement

import "strings"

type column int

const (
	colStatus column = iota
	colAmount
	colDescription
	colCompletedDate
	colStartedDate
	colCurrency
	colBalance
	colType
	colProduct
	colFee
	numColumns
)

// Header aliases per logical field, English export first. The first alias present wins.
var aliases = [numColumns][]string{
	colStatus:        {"State", "Stato"},
	colAmount:        {"Amount", "Importo"},
	colDescription:   {"Description", "Descrizione"},
	colCompletedDate: {"Completed Date", "Data di completamento"},
	colStartedDate:   {"Started Date", "Data di inizio"},
	colCurrency:      {"Currency", "Valuta"},
	colBalance:       {"Balance", "Saldo"},
	colType:          {"Type", "Tipo"},
	colProduct:       {"Product", "Prodotto"},
	colFee:           {"Fee", "Costo"},
}

// Field is a cell value that is either resolved or absent.
type Field struct {
	Value   string
	Present bool
}

// Row is one statement line with every logical field resolved through the header aliases.
type Row struct {
	Status        Field
	Amount        Field
	Description   Field
	CompletedDate Field
	StartedDate   Field
	Currency      Field
	Balance       Field
	Type          Field
	Product       Field
	Fee           Field
}

// header maps each logical field to a column index, -1 when absent.
type header [numColumns]int

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// resolveHeader picks, per field, the first alias present in cells.
func resolveHeader(cells []string) header {
	index := make(map[string]int, len(cells))
	for i, c := range cells {
		key := normalizeHeader(c)
		if _, dup := index[key]; !dup && key != "" {
			index[key] = i
		}
	}

	var h header
	for col := column(0); col < numColumns; col++ {
		h[col] = -1
		for _, alias := range aliases[col] {
			if i, ok := index[normalizeHeader(alias)]; ok {
				h[col] = i
				break
			}
		}
	}
	return h
}

func (h header) has(col column) bool { return h[col] >= 0 }

func (h header) field(record []string, col column) Field {
	i := h[col]
	if i < 0 || i >= len(record) {
		return Field{}
	}
	v := strings.TrimSpace(record[i])
	if v == "" {
		return Field{}
	}
	return Field{Value: v, Present: true}
}

func (h header) row(record []string) Row {
	return Row{
		Status:        h.field(record, colStatus),
		Amount:        h.field(record, colAmount),
		Description:   h.field(record, colDescription),
		CompletedDate: h.field(record, colCompletedDate),
		StartedDate:   h.field(record, colStartedDate),
		Currency:      h.field(record, colCurrency),
		Balance:       h.field(record, colBalance),
		Type:          h.field(record, colType),
		Product:       h.field(record, colProduct),
		Fee:           h.field(record, colFee),
	}
}

// Settled reports whether the row carries a completed status.
func (r Row) Settled() bool {
	if !r.Status.Present {
		return false
	}
	for _, token := range settledTokens {
		if strings.EqualFold(r.Status.Value, token) {
			return true
		}
	}
	return false
}

// DateTime returns the completed date when present, else the started date.
func (r Row) DateTime() Field {
	if r.CompletedDate.Present {
		return r.CompletedDate
	}
	return r.StartedDate
}

var settledTokens = []string{"COMPLETED", "COMPLETATO"}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
