package checklist

import "github.com/sells-group/grc-cli/internal/model"

func claimsContext() model.ProjectContext {
	return BuildContext("Claims Assistant - Pilot", "insurance", "property-casualty", model.UseCase{
		ID:       "claims-intake",
		Name:     "Claims intake assistant",
		Tags:     []string{"genai", "pii"},
		Industry: model.Ref{ID: "insurance", Name: "Insurance"},
		Segment:  model.Ref{ID: "property-casualty", Name: "Property & Casualty"},
	}, map[string]any{
		"processes_personal_data": true,
		"deployment":              "cloud",
		"regions":                 []any{"eu", "us"},
	})
}

func pack(domain, id, version string, reqs ...model.Requirement) model.ControlPack {
	return model.ControlPack{
		Domain:       domain,
		ID:           id,
		Version:      version,
		Requirements: reqs,
		ContentHash:  domain + "-" + id + "-" + version,
	}
}

func req(id, mergeKey, title string, sev model.Severity) model.Requirement {
	return model.Requirement{ID: id, MergeKey: mergeKey, Title: title, Severity: sev}
}

func strPtr(s string) *string { return &s }
