package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/project"
)

// formatProjectsList writes a tabular list of projects to w.
func formatProjectsList(out io.Writer, projects []model.ProjectSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tINDUSTRY\tUSE_CASE\tPACKS\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t--------\t-----\t-------")

	for _, p := range projects {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID,
			truncate(p.Name, 30),
			p.IndustryID+"/"+p.SegmentID,
			p.UseCaseID,
			p.Packs,
			p.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatChecklist writes the items followed by status totals.
func formatChecklist(out io.Writer, cl model.Checklist) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ITEM\tSEVERITY\tSTATUS\tEVIDENCE\tTITLE")
	_, _ = fmt.Fprintln(w, "----\t--------\t------\t--------\t-----")

	for _, it := range cl.Items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			it.ItemID,
			it.Severity,
			it.Status,
			len(it.Evidence),
			truncate(it.Title, 50),
		)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Total:\t%d\n", cl.Counts.Total)
	for _, s := range model.Statuses {
		if n := cl.Counts.ByStatus[s]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", s, n)
		}
	}
	_ = w.Flush()
}

// formatFingerprintReport writes stored and current hashes side by side.
func formatFingerprintReport(out io.Writer, r *project.FingerprintReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tSTORED\tCURRENT")
	_, _ = fmt.Fprintf(w, "generator_version\t%s\t%s\n", r.Stored.GeneratorVersion, r.Current.GeneratorVersion)
	_, _ = fmt.Fprintf(w, "taxonomy_hash\t%s\t%s\n", truncateHash(r.Stored.TaxonomyHash), truncateHash(r.Current.TaxonomyHash))
	_, _ = fmt.Fprintf(w, "packs_hash\t%s\t%s\n", truncateHash(r.Stored.PacksHash), truncateHash(r.Current.PacksHash))
	_, _ = fmt.Fprintf(w, "checklist_hash\t%s\t%s\n", truncateHash(r.Stored.ChecklistHash), truncateHash(r.Current.ChecklistHash))
	_ = w.Flush()

	for _, p := range r.MissingPacks {
		_, _ = fmt.Fprintf(out, "missing pack: %s:%s:%s\n", p.Domain, p.PackID, p.Version)
	}
	if r.UpToDate() {
		_, _ = fmt.Fprintln(out, "Up to date.")
		return
	}
	_, _ = fmt.Fprintf(out, "Drifted: %s\n", strings.Join(r.Drift, ", "))
}

// formatPacksList writes a tabular list of packs to w.
func formatPacksList(out io.Writer, packs []model.ControlPack) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DOMAIN\tPACK\tVERSION\tREQUIREMENTS\tHASH")
	_, _ = fmt.Fprintln(w, "------\t----\t-------\t------------\t----")
	for _, p := range packs {
		sum := p.Summary()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			sum.Domain, sum.PackID, sum.Version, sum.Requirements, truncateHash(sum.ContentHash))
	}
	_ = w.Flush()
}

// formatIndustries writes the taxonomy as an indented tree.
func formatIndustries(out io.Writer, industries []model.Industry) {
	for _, ind := range industries {
		_, _ = fmt.Fprintf(out, "%s  %s\n", ind.ID, ind.Name)
		for _, seg := range ind.Segments {
			_, _ = fmt.Fprintf(out, "  %s  %s\n", seg.ID, seg.Name)
			for _, uc := range seg.UseCases {
				line := fmt.Sprintf("    %s  %s", uc.ID, uc.Name)
				if len(uc.Tags) > 0 {
					line += " [" + strings.Join(uc.Tags, ", ") + "]"
				}
				_, _ = fmt.Fprintln(out, line)
			}
		}
	}
}

// formatValidationError writes a rejected request with its details.
func formatValidationError(out io.Writer, ve *project.ValidationError) {
	_, _ = fmt.Fprintf(out, "%s: %s\n", ve.Kind, ve.Message)
	for _, k := range slices.Sorted(maps.Keys(ve.Details)) {
		_, _ = fmt.Fprintf(out, "  %s: %s\n", k, ve.Details[k])
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// truncateHash returns the first 12 hex characters of a digest.
func truncateHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
