package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"

	"github.com/gorilla/mux"
)

var (
	errMalformedJSON = errors.New("malformed JSON body")
	errMissingFile   = errors.New("multipart field \"file\" is required")
)

// parseMonthQuery reads year and month from the query string, defaulting to
// the current month. Non-numeric values fall back to the default.
func parseMonthQuery(r *http.Request, now time.Time) (core.YearMonth, error) {
	q := r.URL.Query()
	ym := core.YearMonth{
		Year:  intParam(q.Get("year"), now.Year()),
		Month: intParam(q.Get("month"), int(now.Month())),
	}
	return ym, ym.Validate()
}

// parseYearQuery reads year from the query string, defaulting to now.
func parseYearQuery(r *http.Request, now time.Time) (int, error) {
	year := intParam(r.URL.Query().Get("year"), now.Year())
	if err := (core.YearMonth{Year: year, Month: 1}).Validate(); err != nil {
		return 0, err
	}
	return year, nil
}

// pathYearMonth reads the {year}/{month} route variables.
func pathYearMonth(r *http.Request) (core.YearMonth, error) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		return core.YearMonth{}, core.Invalid("year", core.ErrInvalidDate)
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil {
		return core.YearMonth{}, core.Invalid("month", core.ErrInvalidMonth)
	}
	return core.NewYearMonth(year, month)
}

func intParam(v string, def int) int {
	if v = strings.TrimSpace(v); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// decodeJSON reads a bounded JSON body into v. Decoding failures are
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return core.Invalid("body", fmt.Errorf("%w: %v", errMalformedJSON, err))
	}
	return nil
}

// readJSONArray reads a bounded body and requires a top-level JSON array.
func readJSONArray(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		return nil, core.Invalid("body", err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, core.Invalid("body", errors.New("expected a JSON array of transactions"))
	}
	return trimmed, nil
}

// readUpload returns the bytes and name of the multipart "file" field.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, "", core.Invalid("file", fmt.Errorf("read upload: %w", err))
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", core.Invalid("file", errMissingFile)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, "", core.Invalid("file", fmt.Errorf("read upload: %w", err))
	}
	if int64(len(data)) > limit {
		return nil, "", core.Invalid("file", fmt.Errorf("file exceeds %d bytes", limit))
	}
	return data, hdr.Filename, nil
}
