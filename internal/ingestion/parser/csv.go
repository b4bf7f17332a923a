// Package parser turns uploaded identity exports into records.
package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"idgov/internal/identity/models"
)

var (
	// ErrEmptyFile is returned when the upload has no header row.
	ErrEmptyFile = errors.New("file has no header row")
	// ErrMissingIdentityColumn is returned when no header maps to id_user.
	ErrMissingIdentityColumn = errors.New("missing required column id_user")
)

// Result is a parsed upload. Warnings describe rows that were skipped or
// repaired; they never abort the import.
type Result struct {
	Records  []models.Identity
	Warnings []string
	Encoding string
	Rows     int
}

// Parse decodes data and reads it as a delimited file whose first row is the
// header. The delimiter is ',' or ';', whichever dominates the header line.
func Parse(data []byte) (*Result, error) {
	decoded, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = detectDelimiter(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read header row: %w", err)
	}

	columns := make([]string, len(headers))
	idColumn := -1
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
		columns[i] = canonicalColumn(headers[i])
		if columns[i] == ColumnIdentityID && idColumn < 0 {
			idColumn = i
		}
	}
	if idColumn < 0 {
		return nil, ErrMissingIdentityColumn
	}

	res := &Result{Encoding: enc}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%v; skipped", err))
			continue
		}
		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}
		res.Rows++

		if len(row) != len(headers) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: has %d columns, expected %d", line, len(row), len(headers)))
			row = fitRow(row, len(headers))
		}

		rec, ok := buildIdentity(headers, columns, row)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: missing id_user; skipped", line))
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func buildIdentity(headers, columns, row []string) (models.Identity, bool) {
	var rec models.Identity
	for i, value := range row {
		value = strings.TrimSpace(value)
		switch columns[i] {
		case ColumnIdentityID:
			if rec.IdentityID == "" {
				rec.IdentityID = value
			}
		case ColumnName:
			rec.Name = value
		case ColumnEmail:
			rec.Email = value
		case ColumnCPF:
			rec.CPF = value
		case ColumnStatus:
			rec.Status = value
		case ColumnUserType:
			rec.UserType = value
		case ColumnProfile:
			rec.Profile = value
		case ColumnLastLogin:
			rec.Extra.LastLogin = models.ParseLastLogin(value)
		default:
			if value == "" || headers[i] == "" {
				continue
			}
			if rec.Extra.Attributes == nil {
				rec.Extra.Attributes = make(map[string]string)
			}
			rec.Extra.Attributes[headers[i]] = value
		}
	}
	return rec, rec.IdentityID != ""
}

// detectDelimiter counts separators on the header line outside quotes.
func detectDelimiter(data []byte) rune {
	header, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	var commas, semicolons int
	quoted := false
	for _, r := range header {
		switch r {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				commas++
			}
		case ';':
			if !quoted {
				semicolons++
			}
		}
	}
	if semicolons > commas {
		return ';'
	}
	return ','
}

func fitRow(row []string, n int) []string {
	if len(row) > n {
		return row[:n]
	}
	padded := make([]string, n)
	copy(padded, row)
	return padded
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
