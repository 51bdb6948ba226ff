package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"2025-03-14"`, "2025-03-14"},
		{`"2025-03-14T23:10:00Z"`, "2025-03-14"},
		{`"2025-03-14 08:00:00"`, "2025-03-14"},
		{`null`, ""},
	}
	for _, tc := range cases {
		var d Date
		if err := json.Unmarshal([]byte(tc.in), &d); err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if d.String() != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.in, d.String(), tc.want)
		}
	}

	var d Date
	if err := json.Unmarshal([]byte(`"14 marzo"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	out, err := json.Marshal(NewDate(2024, 2, 29))
	if err != nil || string(out) != `"2024-02-29"` {
		t.Fatalf("marshal got %s (err=%v)", out, err)
	}
}

func TestTypeFromSign(t *testing.T) {
	if TypeFromSign(-1250) != Expense {
		t.Fatalf("negative amount must be an expense")
	}
	if TypeFromSign(1250) != Income {
		t.Fatalf("positive amount must be income")
	}
	if TypeFromSign(0) != Income {
		t.Fatalf("zero amount must be income")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ExternalKey: "rev_1",
		Date:        NewDate(2025, 1, 1),
		Description: "Coffee",
		Amount:      Money{Cents: 250},
		Type:        Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Amount = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount is a valid candidate, got %v", err)
	}

	bads := map[string]struct {
		mutate func(*Transaction)
		want   error
	}{
		"missing key":     {func(tx *Transaction) { tx.ExternalKey = " " }, ErrEmptyExternalKey},
		"zero date":       {func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		"negative amount": {func(tx *Transaction) { tx.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		"bad type":        {func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
	}
	for name, tc := range bads {
		tx := good
		tc.mutate(&tx)
		err := tx.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
		if !IsValidation(err) {
			t.Fatalf("%s: expected a validation error", name)
		}
	}
}

func TestTransactionWithDefaults(t *testing.T) {
	empty := ""
	tx := Transaction{CategoryID: &empty}.WithDefaults("no description")
	if tx.Currency != DefaultCurrency {
		t.Fatalf("currency = %q, want %q", tx.Currency, DefaultCurrency)
	}
	if tx.Description != "no description" {
		t.Fatalf("description = %q", tx.Description)
	}
	if tx.CategoryID != nil {
		t.Fatalf("empty category id must become nil")
	}
}

func TestTransactionJSONShape(t *testing.T) {
	in := `{"revolut_id":"rev_1","date":"2025-01-02","description":"Bar","amount":12.5,"currency":"EUR","type":"expense","category_id":null}`
	var tx Transaction
	if err := json.Unmarshal([]byte(in), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tx.Amount.Cents != 1250 || tx.Type != Expense || tx.CategoryID != nil {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.Signed().Cents != -1250 {
		t.Fatalf("signed = %d", tx.Signed().Cents)
	}
}

func TestCategoryDefaults(t *testing.T) {
	c := Category{Name: "  Spesa  "}.WithDefaults()
	if c.Name != "Spesa" || c.Icon != DefaultCategoryIcon || c.Color != DefaultCategoryColor {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if err := (Category{}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestMerchantRuleValidate(t *testing.T) {
	if err := (MerchantRule{Pattern: "AMAZON", CategoryID: "c1"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (MerchantRule{Pattern: "  ", CategoryID: "c1"}).Validate(); !errors.Is(err, ErrEmptyPattern) {
		t.Fatalf("expected ErrEmptyPattern, got %v", err)
	}
	if err := (MerchantRule{Pattern: "AMAZON"}).Validate(); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}
