package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	DefaultCurrency          = "EUR"
	DefaultManualDescription = "Nuova transazione"
	DefaultCategoryIcon      = "📦"
	DefaultCategoryColor     = "#64748b"
	ManualExternalKeyPrefix  = "manual_"
	maxDescriptionLength     = 500
	maxCategoryNameLength    = 80
	maxRulePatternLength     = 500
	dateLayout               = "2006-01-02"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id,omitempty"`
		ExternalKey string          `json:"revolut_id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Currency    string          `json:"currency"`
		Type        TransactionType `json:"type"`
		CategoryID  *string         `json:"category_id"`
		IsManual    bool            `json:"is_manual"`
		IsRecurring bool            `json:"is_recurring"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Category struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Icon      string    `json:"icon"`
		Color     string    `json:"color"`
		CreatedAt time.Time `json:"created_at"`
	}

	// MerchantRule maps a case-insensitive description substring to a category.
	MerchantRule struct {
		ID         string    `json:"id"`
		Pattern    string    `json:"merchant_pattern"`
		CategoryID string    `json:"category_id"`
		CreatedAt  time.Time `json:"created_at"`
		// Seq is the store's insertion order. It breaks CreatedAt ties.
		Seq int64 `json:"-"`
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrEmptyExternalKey  = errors.New("empty external key")
	ErrEmptyDescription  = errors.New("empty description")
	ErrDescriptionLength = errors.New("description too long")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyPattern      = errors.New("empty pattern")
	ErrEmptyCategory     = errors.New("empty category")
)

// ValidationError marks an input problem that must never reach the store.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid wraps err as a ValidationError for field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping the day as seen in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("date", ErrInvalidDate)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON accepts YYYY-MM-DD and full timestamps; both are truncated to the day.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = Date{}
		return nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = DateOf(t)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

// TypeFromSign maps a signed amount to its transaction type. Zero is income.
func TypeFromSign(cents int64) TransactionType {
	if cents < 0 {
		return Expense
	}
	return Income
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return Money{Cents: -t.Amount.Cents}
	}
	return t.Amount
}

// IsCategorized reports whether the transaction points to a category.
func (t Transaction) IsCategorized() bool {
	return t.CategoryID != nil && *t.CategoryID != ""
}

// Validate checks a transaction candidate before it is written to the store.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ExternalKey) == "" {
		return Invalid("revolut_id", ErrEmptyExternalKey)
	}
	if err := t.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	if t.Amount.Cents < 0 {
		return Invalid("amount", ErrInvalidAmount)
	}
	if !t.Type.Valid() {
		return Invalid("type", ErrInvalidType)
	}
	if len(t.Description) > maxDescriptionLength {
		return Invalid("description", ErrDescriptionLength)
	}
	return nil
}

// WithDefaults fills currency and description placeholders.
func (t Transaction) WithDefaults(description string) Transaction {
	if strings.TrimSpace(t.Currency) == "" {
		t.Currency = DefaultCurrency
	}
	if strings.TrimSpace(t.Description) == "" {
		t.Description = description
	}
	if t.CategoryID != nil && *t.CategoryID == "" {
		t.CategoryID = nil
	}
	return t
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return Invalid("name", ErrEmptyName)
	}
	if len(name) > maxCategoryNameLength {
		return Invalid("name", errors.New("name too long (max 80 characters)"))
	}
	return nil
}

// WithDefaults fills icon and color when left empty.
func (c Category) WithDefaults() Category {
	c.Name = strings.TrimSpace(c.Name)
	if strings.TrimSpace(c.Icon) == "" {
		c.Icon = DefaultCategoryIcon
	}
	if strings.TrimSpace(c.Color) == "" {
		c.Color = DefaultCategoryColor
	}
	return c
}

func (r MerchantRule) Validate() error {
	pattern := strings.TrimSpace(r.Pattern)
	if pattern == "" {
		return Invalid("merchant_pattern", ErrEmptyPattern)
	}
	if len(pattern) > maxRulePatternLength {
		return Invalid("merchant_pattern", errors.New("pattern too long (max 500 characters)"))
	}
	if strings.TrimSpace(r.CategoryID) == "" {
		return Invalid("category_id", ErrEmptyCategory)
	}
	return nil
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
