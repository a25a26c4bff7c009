package candidates

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// EmailMapping maps a document id to the address the candidate submitted.
type EmailMapping map[string]string

// Get returns the email for a document id, or "" when none was submitted.
func (m EmailMapping) Get(id string) string {
	if m == nil {
		return ""
	}
	return m[id]
}

// responseRow is one row of the application form export.
type responseRow struct {
	Email  string `mapstructure:"Email Address"`
	Upload string `mapstructure:"File Upload"`
}

var uploadName = regexp.MustCompile(`([^/]+)\.pdf`)

// LoadEmailMapping reads a form responses CSV export. An empty path yields an empty mapping.
func LoadEmailMapping(path string) (EmailMapping, error) {
	if strings.TrimSpace(path) == "" {
		return EmailMapping{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open responses file: %w", err)
	}
	defer f.Close()

	mapping, err := ReadEmailMapping(f)
	if err != nil {
		return nil, fmt.Errorf("read responses file %q: %w", path, err)
	}
	return mapping, nil
}

// ReadEmailMapping parses responses CSV data. Rows without an email, without an upload
// link or whose link does not name a PDF are ignored.
func ReadEmailMapping(r io.Reader) (EmailMapping, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return EmailMapping{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	mapping := EmailMapping{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		fields := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(record) {
				fields[key] = record[i]
			}
		}

		var row responseRow
		if err := mapstructure.Decode(fields, &row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}

		email := strings.TrimSpace(row.Email)
		if email == "" || strings.TrimSpace(row.Upload) == "" {
			continue
		}

		match := uploadName.FindStringSubmatch(row.Upload)
		if match == nil {
			continue
		}
		mapping[match[1]] = email
	}

	return mapping, nil
}
