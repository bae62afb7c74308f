// Package checklist derives compliance checklists from control packs and
// carries user state across regenerations. Everything here is pure: no I/O,
// no clocks, no shared state.
package checklist

import (
	"maps"

	"github.com/sells-group/grc-cli/internal/model"
)

// BuildContext assembles the project context packs are evaluated against.
// It does not check that useCase belongs to industryID/segmentID; callers do.
func BuildContext(projectName, industryID, segmentID string, useCase model.UseCase, scopeAnswers map[string]any) model.ProjectContext {
	answers := make(map[string]any, len(scopeAnswers))
	maps.Copy(answers, scopeAnswers)

	uc := useCase
	if useCase.Tags != nil {
		uc.Tags = append([]string(nil), useCase.Tags...)
	}

	return model.ProjectContext{
		ProjectName:  projectName,
		IndustryID:   industryID,
		SegmentID:    segmentID,
		UseCase:      uc,
		ScopeAnswers: answers,
	}
}
