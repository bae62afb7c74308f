package checklist

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/sells-group/grc-cli/internal/model"
)

// Applies evaluates a requirement predicate against a context. It returns the
// matched conditions in a stable order so they can be shown to users.
func Applies(a model.Applicability, pc model.ProjectContext) (bool, []string) {
	if a.IsZero() {
		return true, nil
	}

	var reasons []string

	if len(a.Industries) > 0 {
		if !slices.Contains(a.Industries, pc.IndustryID) {
			return false, nil
		}
		reasons = append(reasons, "industry is "+pc.IndustryID)
	}
	if len(a.Segments) > 0 {
		if !slices.Contains(a.Segments, pc.SegmentID) {
			return false, nil
		}
		reasons = append(reasons, "segment is "+pc.SegmentID)
	}
	if len(a.UseCases) > 0 {
		if !slices.Contains(a.UseCases, pc.UseCase.ID) {
			return false, nil
		}
		reasons = append(reasons, "use case is "+pc.UseCase.ID)
	}
	if len(a.Tags) > 0 {
		tag, ok := firstShared(a.Tags, pc.UseCase.Tags)
		if !ok {
			return false, nil
		}
		reasons = append(reasons, "use case is tagged "+tag)
	}

	keys := make([]string, 0, len(a.Scope))
	for k := range a.Scope {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		allowed := a.Scope[key]
		answer, present := pc.ScopeAnswers[key]
		if !present {
			return false, nil
		}
		matched, ok := matchAnswer(answer, allowed)
		if !ok {
			return false, nil
		}
		reasons = append(reasons, fmt.Sprintf("scope %s = %s", key, matched))
	}

	return true, reasons
}

func firstShared(want, have []string) (string, bool) {
	for _, w := range want {
		if slices.Contains(have, w) {
			return w, true
		}
	}
	return "", false
}

// matchAnswer compares the string form of a scope answer against the allowed
// values. List answers match when any element matches. An empty allowed list
// only requires the answer to be present.
func matchAnswer(answer any, allowed []string) (string, bool) {
	var candidates []string
	switch v := answer.(type) {
	case []any:
		for _, e := range v {
			candidates = append(candidates, answerString(e))
		}
	case []string:
		candidates = v
	default:
		candidates = []string{answerString(v)}
	}

	if len(allowed) == 0 {
		return strings.Join(candidates, ","), true
	}
	for _, c := range candidates {
		for _, a := range allowed {
			if strings.EqualFold(c, a) {
				return c, true
			}
		}
	}
	return "", false
}

func answerString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		// JSON numbers decode as float64; render integers without a fraction.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
