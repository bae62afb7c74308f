package model

// Status is the workflow state of a checklist item. It is owned by the user
// and survives checklist regeneration.
type Status string

const (
	StatusNotStarted    Status = "not_started"
	StatusInProgress    Status = "in_progress"
	StatusImplemented   Status = "implemented"
	StatusNotApplicable Status = "not_applicable"
	StatusRiskAccepted  Status = "risk_accepted"
)

// Statuses lists every workflow status in presentation order.
var Statuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusImplemented,
	StatusNotApplicable,
	StatusRiskAccepted,
}

// Valid reports whether s is one of the five workflow statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}
