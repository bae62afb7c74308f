package checklist

import "github.com/sells-group/grc-cli/internal/model"

// Summarize tallies items by status, severity and domain. Every known status
// and severity is present in the result, zero when unused.
func Summarize(items []model.ChecklistItem) model.Counts {
	c := model.Counts{
		Total:            len(items),
		ByStatus:         make(map[model.Status]int, len(model.Statuses)),
		BySeverity:       make(map[model.Severity]int, len(model.Severities)),
		ByDomain:         make(map[string]int),
		ByStatusSeverity: make(map[model.Status]map[model.Severity]int),
	}
	for _, s := range model.Statuses {
		c.ByStatus[s] = 0
	}
	for _, s := range model.Severities {
		c.BySeverity[s] = 0
	}

	for _, it := range items {
		c.ByStatus[it.Status]++
		c.BySeverity[it.Severity]++
		c.ByDomain[it.Domain]++

		bySev, ok := c.ByStatusSeverity[it.Status]
		if !ok {
			bySev = make(map[model.Severity]int)
			c.ByStatusSeverity[it.Status] = bySev
		}
		bySev[it.Severity]++
	}
	return c
}
