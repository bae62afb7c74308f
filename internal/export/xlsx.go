package export

import (
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/grc-cli/internal/model"
)

// Sheet names in an XLSX report.
const (
	SheetChecklist = "Checklist"
	SheetSummary   = "Summary"
)

// WriteXLSX writes a workbook with a checklist sheet and a summary sheet.
func WriteXLSX(w io.Writer, r Report) error {
	f := xlsx.NewFile()

	items, err := f.AddSheet(SheetChecklist)
	if err != nil {
		return eris.Wrap(err, "export: add checklist sheet")
	}
	addRow(items, header()...)
	for _, row := range Rows(r.Checklist) {
		addRow(items, row.cells()...)
	}

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	writeSummary(summary, r)

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func writeSummary(sheet *xlsx.Sheet, r Report) {
	p := r.Project
	desc := ""
	if p.Project.Description != nil {
		desc = *p.Project.Description
	}
	for _, kv := range [][2]string{
		{"project_id", p.Project.ID},
		{"name", p.Project.Name},
		{"description", desc},
		{"industry_id", p.Inputs.IndustryID},
		{"segment_id", p.Inputs.SegmentID},
		{"use_case_id", p.Inputs.UseCaseID},
		{"generated_at", r.Checklist.GeneratedAt.UTC().Format(time.RFC3339)},
		{"generator_version", p.Generated.GeneratorVersion},
		{"taxonomy_hash", p.Generated.TaxonomyHash},
		{"packs_hash", p.Generated.PacksHash},
		{"checklist_hash", p.Generated.ChecklistHash},
		{"total", strconv.Itoa(r.Checklist.Counts.Total)},
	} {
		addRow(sheet, kv[0], kv[1])
	}
	for _, sp := range p.Inputs.SelectedPacks {
		addRow(sheet, "pack", sp.String())
	}
	for _, s := range model.Statuses {
		addRow(sheet, "status."+string(s), strconv.Itoa(r.Checklist.Counts.ByStatus[s]))
	}
	for _, s := range model.Severities {
		addRow(sheet, "severity."+string(s), strconv.Itoa(r.Checklist.Counts.BySeverity[s]))
	}
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
