package checklist

import (
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/grc-cli/internal/model"
)

// Generate evaluates packs against a context and returns the deduplicated,
// ordered checklist. ProjectID and GeneratedAt are left for the caller.
//
// Requirements sharing a merge key collapse into one item: the most severe
// severity wins, while title, objective and domain come from the first
// contributing pack in input order.
func Generate(pc model.ProjectContext, packs []model.ControlPack) model.Checklist {
	byKey := make(map[string]*model.ChecklistItem)
	var order []string

	for _, pack := range packs {
		ref := pack.Ref().String()
		for _, req := range pack.Requirements {
			ok, reasons := Applies(req.AppliesWhen, pc)
			if !ok {
				continue
			}

			key := mergeKeyFor(pack, req)
			item, exists := byKey[key]
			if !exists {
				item = &model.ChecklistItem{
					ItemID:     ItemID(key),
					MergeKey:   key,
					Title:      req.Title,
					Objective:  req.Objective,
					Severity:   req.Severity,
					Domain:     pack.Domain,
					WhyApplies: whyApplies(reasons),
					Status:     model.StatusNotStarted,
					Evidence:   []model.EvidenceRecord{},
				}
				byKey[key] = item
				order = append(order, key)
			} else {
				item.Severity = model.MaxSeverity(item.Severity, req.Severity)
			}

			if !slices.Contains(item.Sources, ref) {
				item.Sources = append(item.Sources, ref)
			}
			item.EvidenceRequired = mergeEvidence(item.EvidenceRequired, req.EvidenceRequired)
		}
	}

	items := make([]model.ChecklistItem, 0, len(order))
	for _, key := range order {
		items = append(items, *byKey[key])
	}
	SortItems(items)

	return model.Checklist{
		Items:  items,
		Counts: Summarize(items),
	}
}

// SortItems orders items by severity (most severe first), then title without
// regard to case, then item id.
func SortItems(items []model.ChecklistItem) {
	fold := cases.Fold()
	keys := make(map[string]string, len(items))
	for _, it := range items {
		keys[it.ItemID] = fold.String(it.Title)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
			return ra > rb
		}
		if ka, kb := keys[a.ItemID], keys[b.ItemID]; ka != kb {
			return ka < kb
		}
		return a.ItemID < b.ItemID
	})
}

func whyApplies(reasons []string) string {
	if len(reasons) == 0 {
		return "applies to all projects"
	}
	return strings.Join(reasons, "; ")
}

func mergeEvidence(have, add []model.EvidenceRequirement) []model.EvidenceRequirement {
	for _, e := range add {
		if !slices.Contains(have, e) {
			have = append(have, e)
		}
	}
	return have
}
