package checklist

import "github.com/sells-group/grc-cli/internal/model"

// Report describes what a reconciliation did, by item id.
type Report struct {
	Kept             []string `json:"kept"`
	Added            []string `json:"added"`
	Dropped          []string `json:"dropped"`
	OrphanedEvidence int      `json:"orphaned_evidence"`
}

// Reconcile carries user-owned state (status, owner, notes, evidence) from
// prior onto regenerated, matching items by id. Definitional fields always
// come from regenerated. Items only in prior are dropped along with their
// evidence. Counts are recomputed.
func Reconcile(regenerated, prior model.Checklist) model.Checklist {
	out, _ := ReconcileWithReport(regenerated, prior)
	return out
}

// ReconcileWithReport is Reconcile plus a description of kept, added and
// dropped items.
func ReconcileWithReport(regenerated, prior model.Checklist) (model.Checklist, Report) {
	previous := make(map[string]model.ChecklistItem, len(prior.Items))
	for _, it := range prior.Items {
		previous[it.ItemID] = it
	}

	var report Report
	seen := make(map[string]bool, len(regenerated.Items))
	items := make([]model.ChecklistItem, len(regenerated.Items))
	for i, it := range regenerated.Items {
		seen[it.ItemID] = true
		if old, ok := previous[it.ItemID]; ok {
			it.Status = old.Status
			it.Owner = copyString(old.Owner)
			it.Notes = copyString(old.Notes)
			it.Evidence = append([]model.EvidenceRecord{}, old.Evidence...)
			report.Kept = append(report.Kept, it.ItemID)
		} else {
			it.Evidence = append([]model.EvidenceRecord{}, it.Evidence...)
			report.Added = append(report.Added, it.ItemID)
		}
		items[i] = it
	}

	for _, it := range prior.Items {
		if !seen[it.ItemID] {
			report.Dropped = append(report.Dropped, it.ItemID)
			report.OrphanedEvidence += len(it.Evidence)
		}
	}

	projectID := regenerated.ProjectID
	if projectID == "" {
		projectID = prior.ProjectID
	}

	return model.Checklist{
		ProjectID:   projectID,
		GeneratedAt: regenerated.GeneratedAt,
		Items:       items,
		Counts:      Summarize(items),
	}, report
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
