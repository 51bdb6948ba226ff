package storage

import "database/sql"

type Category struct {
	ID        string
	Name      string
	Icon      string
	Color     string
	CreatedAt string
}

type Transaction struct {
	ID          string
	ExternalKey string
	Date        string
	Description string
	AmountCents int64
	Currency    string
	Type        string
	CategoryID  sql.NullString
	IsManual    bool
	IsRecurring bool
	CreatedAt   string
}

type MerchantRule struct {
	Rowid           int64
	ID              string
	MerchantPattern string
	CategoryID      string
	CreatedAt       string
}

type MonthlyBalance struct {
	ID                   string
	Year                 int64
	Month                int64
	StartingBalanceCents sql.NullInt64
	EndingBalanceCents   sql.NullInt64
	Notes                string
	UpdatedAt            string
}
