// Package marketdata loads daily bar sequences from CSV files.
//
// Expected columns: date,open,high,low,close,volume. The date column
// accepts either a calendar date (2006-01-02) or a millisecond epoch
// timestamp. Exported files from spreadsheets are often UTF-16 with a
// BOM; those are decoded transparently.
package marketdata

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"trendeval/services/engine"
)

// LoadCSV reads one instrument's bars from path. Structural problems
// (wrong column count, unparseable numbers) fail immediately; ordering
// and price-sanity checks are the engine's ValidateBars' job and run
// before any simulation.
func LoadCSV(path string) ([]engine.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()
	return ReadBars(f)
}

// ReadBars parses a CSV bar stream.
func ReadBars(rd io.Reader) ([]engine.Bar, error) {
	r := csv.NewReader(decodeBOM(rd))
	r.TrimLeadingSpace = true

	var bars []engine.Bar
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++
		if len(rec) < 6 {
			return nil, fmt.Errorf("csv line %d: expected 6 fields, got %d", line, len(rec))
		}
		// Header row is optional.
		if line == 1 && isHeader(rec[0]) {
			continue
		}

		ts, err := parseDate(strings.TrimPrefix(strings.TrimSpace(rec[0]), "\ufeff"))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		var fields [5]decimal.Decimal
		for i := 0; i < 5; i++ {
			fields[i], err = decimal.NewFromString(strings.TrimSpace(rec[i+1]))
			if err != nil {
				return nil, fmt.Errorf("csv line %d field %d: %w", line, i+2, err)
			}
		}
		bars = append(bars, engine.Bar{
			Timestamp: ts,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return bars, nil
}

// decodeBOM wraps rd with a UTF-16 decoder when a BOM is present.
func decodeBOM(rd io.Reader) io.Reader {
	br := bufio.NewReader(rd)
	head, _ := br.Peek(2)
	if len(head) == 2 && ((head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF)) {
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	}
	return br
}

func isHeader(first string) bool {
	first = strings.TrimPrefix(strings.TrimSpace(first), "\ufeff")
	return strings.EqualFold(first, "date") || strings.EqualFold(first, "timestamp") ||
		strings.EqualFold(first, "timestamp_ms")
}

func parseDate(s string) (int64, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t.UnixMilli(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	return 0, fmt.Errorf("unrecognized date %q", s)
}
