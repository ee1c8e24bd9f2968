package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/goccy/go-json"
)

// jsonRecord mirrors recipe.Record with lenient season and list fields.
type jsonRecord struct {
	recipe.Record
	Year        *int            `json:"year"`
	IsWeekend   *bool           `json:"is_weekend"`
	Season      string          `json:"season"`
	Month       int             `json:"month"`
	Ingredients json.RawMessage `json:"ingredients"`
	Tags        json.RawMessage `json:"tags"`
}

// ReadJSONL reads one JSON object per line. Lists may be JSON arrays or
// separator-joined strings.
func ReadJSONL(in io.Reader, opt LoadOptions) ([]recipe.Record, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out []recipe.Record
	row := 0
	for sc.Scan() {
		row++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if opt.MaxRows > 0 && len(out) >= opt.MaxRows {
			break
		}
		var jr jsonRecord
		if err := json.Unmarshal(line, &jr); err != nil {
			return nil, &recipe.InputError{Row: row, Reason: "malformed JSON", Err: err}
		}
		r := jr.Record
		if r.ID == "" {
			return nil, &recipe.InputError{Row: row, Field: "id", Reason: "missing"}
		}
		if jr.Year == nil {
			return nil, &recipe.InputError{Row: row, Field: "year", Reason: "missing"}
		}
		if jr.IsWeekend == nil {
			return nil, &recipe.InputError{Row: row, Field: "is_weekend", Reason: "missing"}
		}
		r.Year, r.IsWeekend = *jr.Year, *jr.IsWeekend
		var err error
		switch {
		case jr.Season != "":
			r.Season, err = recipe.ParseSeason(jr.Season)
		case jr.Month != 0:
			r.Season, err = recipe.SeasonOfMonth(jr.Month)
		default:
			err = fmt.Errorf("missing")
		}
		if err != nil {
			return nil, &recipe.InputError{Row: row, Field: "season", Reason: fmt.Sprintf("%q is not a season", jr.Season)}
		}
		if r.Ingredients, err = decodeList(jr.Ingredients, opt.ListSeparator); err != nil {
			return nil, &recipe.InputError{Row: row, Field: "ingredients", Reason: "expected array or string", Err: err}
		}
		if r.Tags, err = decodeList(jr.Tags, opt.ListSeparator); err != nil {
			return nil, &recipe.InputError{Row: row, Field: "tags", Reason: "expected array or string", Err: err}
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return out, nil
}

func decodeList(raw json.RawMessage, sep string) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if strings.HasPrefix(string(raw), "\"") {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return splitList(s, sep), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}
