// Package taxonomy loads the flat sector codelist from JSON, CSV, XLSX or
// YAML sources, local or remote.
package taxonomy

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/aims-sectors/internal/fetcher"
	"github.com/sells-group/aims-sectors/internal/model"
)

//go:embed data/dac5.json
var defaultTaxonomy []byte

// DefaultSource is the name recorded for the embedded codelist.
const DefaultSource = "embedded:dac5"

// Format is a taxonomy file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
)

// DetectFormat infers the format from the source's file extension.
func DetectFormat(source string) (Format, error) {
	p := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("taxonomy: cannot detect format of %q", source)
	}
}

// Loader reads taxonomy records through a fetcher.Opener.
type Loader struct {
	opener  *fetcher.Opener
	tempDir string
}

// NewLoader creates a Loader. tempDir holds downloads of remote XLSX files
// ("" uses the OS default).
func NewLoader(opener *fetcher.Opener, tempDir string) *Loader {
	return &Loader{opener: opener, tempDir: tempDir}
}

// Load reads all records from source. DefaultSource returns the embedded
// codelist.
func (l *Loader) Load(ctx context.Context, source string) ([]model.SectorRecord, error) {
	if source == "" || source == DefaultSource {
		return Default()
	}

	format, err := DetectFormat(source)
	if err != nil {
		return nil, err
	}

	var records []model.SectorRecord
	if format == FormatXLSX {
		records, err = l.loadXLSX(ctx, source)
	} else {
		var rc io.ReadCloser
		rc, err = l.opener.Open(ctx, source)
		if err != nil {
			return nil, eris.Wrapf(err, "taxonomy: open %s", source)
		}
		defer rc.Close() //nolint:errcheck
		records, err = Decode(ctx, rc, format)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: load %s", source)
	}

	zap.L().Info("taxonomy: loaded",
		zap.String("source", source),
		zap.String("format", string(format)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (l *Loader) loadXLSX(ctx context.Context, source string) ([]model.SectorRecord, error) {
	p, cleanup, err := l.opener.ToLocalFile(ctx, source, l.tempDir)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	rows, err := fetcher.ReadXLSXRecords(p, fetcher.XLSXOptions{})
	if err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}

// Decode parses records in the given stream format. XLSX is not a stream
// format and must go through Loader.
func Decode(ctx context.Context, r io.Reader, format Format) ([]model.SectorRecord, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(ctx, r)
	case FormatCSV:
		rows, err := fetcher.ReadCSVRecords(ctx, r, fetcher.CSVOptions{LazyQuotes: true})
		if err != nil {
			return nil, err
		}
		return FromRows(rows), nil
	case FormatYAML:
		return decodeYAML(r)
	default:
		return nil, eris.Errorf("taxonomy: format %q cannot be decoded from a stream", format)
	}
}

// decodeJSON accepts either a bare array of records or a codelist document
// with the records under "data".
func decodeJSON(ctx context.Context, r io.Reader) ([]model.SectorRecord, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "taxonomy: peek json")
		}
		if !isSpace(b[0]) {
			break
		}
		_, _ = br.ReadByte()
	}

	b, _ := br.Peek(1)
	if b[0] != '{' {
		return fetcher.CollectJSONArray[model.SectorRecord](ctx, br)
	}

	var doc struct {
		Data []model.SectorRecord `json:"data"`
	}
	if err := json.NewDecoder(br).Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "taxonomy: decode codelist document")
	}
	return doc.Data, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// decodeYAML accepts a list of records or a mapping with a "sectors" list.
func decodeYAML(r io.Reader) ([]model.SectorRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "taxonomy: read yaml")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var list []model.SectorRecord
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc struct {
		Sectors []model.SectorRecord `yaml:"sectors"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "taxonomy: parse yaml")
	}
	return doc.Sectors, nil
}

// columnAliases maps normalized header names to record fields.
var columnAliases = map[string]string{
	"code":          "code",
	"name":          "name",
	"group-code":    "group-code",
	"group-name":    "group-name",
	"category-code": "category-code",
	"category-name": "category-name",
	"category":      "category-code",
	"status":        "status",
}

// FromRows converts header-keyed rows (CSV, XLSX) into records. Header names
// are matched case-insensitively and "_" or spaces count as "-".
func FromRows(rows []map[string]string) []model.SectorRecord {
	out := make([]model.SectorRecord, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]string, len(row))
		for k, v := range row {
			k = strings.NewReplacer("_", "-", " ", "-").Replace(strings.ToLower(k))
			if f, ok := columnAliases[k]; ok {
				if _, set := fields[f]; !set || v != "" {
					fields[f] = v
				}
			}
		}
		out = append(out, model.SectorRecord{
			Code:         fields["code"],
			Name:         fields["name"],
			GroupCode:    fields["group-code"],
			GroupName:    fields["group-name"],
			CategoryCode: fields["category-code"],
			CategoryName: fields["category-name"],
			Status:       model.SectorStatus(fields["status"]),
		})
	}
	return out
}

// ActiveOnly keeps records that are active and carry a 5-character code.
func ActiveOnly(records []model.SectorRecord) []model.SectorRecord {
	out := make([]model.SectorRecord, 0, len(records))
	for _, r := range records {
		r.Code = strings.TrimSpace(r.Code)
		if r.IsActive() {
			out = append(out, r)
		}
	}
	return out
}

// Default returns the embedded DAC 5-digit codelist subset.
func Default() ([]model.SectorRecord, error) {
	var records []model.SectorRecord
	if err := json.Unmarshal(defaultTaxonomy, &records); err != nil {
		return nil, eris.Wrap(err, "taxonomy: decode embedded codelist")
	}
	return records, nil
}
