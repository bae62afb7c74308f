// Package export renders checklists as CSV and XLSX reports.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/grc-cli/internal/model"
)

// Format is a report output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name. An empty name means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Row is one checklist item flattened for tabular output.
type Row struct {
	ItemID        string `csv:"item_id"`
	MergeKey      string `csv:"merge_key"`
	Title         string `csv:"title"`
	Severity      string `csv:"severity"`
	Status        string `csv:"status"`
	Domain        string `csv:"domain"`
	Owner         string `csv:"owner"`
	Notes         string `csv:"notes"`
	Sources       string `csv:"sources"`
	EvidenceFiles int    `csv:"evidence_files"`
	WhyApplies    string `csv:"why_applies"`
}

func (r Row) cells() []string {
	return []string{
		r.ItemID, r.MergeKey, r.Title, r.Severity, r.Status, r.Domain,
		r.Owner, r.Notes, r.Sources, strconv.Itoa(r.EvidenceFiles), r.WhyApplies,
	}
}

// Rows flattens the items of cl in checklist order.
func Rows(cl model.Checklist) []Row {
	rows := make([]Row, len(cl.Items))
	for i, it := range cl.Items {
		rows[i] = Row{
			ItemID:        it.ItemID,
			MergeKey:      it.MergeKey,
			Title:         it.Title,
			Severity:      string(it.Severity),
			Status:        string(it.Status),
			Domain:        it.Domain,
			Owner:         deref(it.Owner),
			Notes:         deref(it.Notes),
			Sources:       strings.Join(it.Sources, "; "),
			EvidenceFiles: len(it.Evidence),
			WhyApplies:    it.WhyApplies,
		}
	}
	return rows
}

// Report bundles everything a rendered report shows.
type Report struct {
	Project   model.ProjectDocument `json:"project"`
	Checklist model.Checklist       `json:"checklist"`
}

// Write renders r in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r.Checklist)
	case FormatXLSX:
		return WriteXLSX(w, r)
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(r), "export: encode json")
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// WriteCSV writes one header line and one line per item.
func WriteCSV(w io.Writer, cl model.Checklist) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	rows := Rows(cl)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(Row{}); err != nil {
			return eris.Wrap(err, "export: encode csv header")
		}
	} else if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "export: encode csv")
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func header() []string {
	h, err := csvutil.Header(Row{}, "csv")
	if err != nil {
		panic(err)
	}
	return h
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
