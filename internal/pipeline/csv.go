package pipeline

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/model"
)

// ParseProvidersCSV reads the batch input file. Any missing, unreadable,
// or malformed input aborts the run before anything is written.
func ParseProvidersCSV(path string) ([]model.InputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadProviders(f)
}

// ReadProviders parses provider rows from CSV with a header line.
// provider_id and full_name are required on every row.
func ReadProviders(r io.Reader) ([]model.InputRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"provider_id", "full_name"} {
		if _, ok := col[required]; !ok {
			return nil, eris.Errorf("csv: missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []model.InputRow
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: line %d", line)
		}

		row := model.InputRow{
			ProviderID: field(record, "provider_id"),
			FullName:   field(record, "full_name"),
			Phone:      field(record, "phone"),
			Address:    field(record, "address"),
			City:       field(record, "city"),
			State:      field(record, "state"),
			NPI:        field(record, "npi"),
		}
		if row.ProviderID == "" {
			return nil, eris.Errorf("csv: line %d: empty provider_id", line)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, eris.New("csv: no provider rows")
	}
	return rows, nil
}
