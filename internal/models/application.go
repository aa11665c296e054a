package models

import "time"

type ApplicationStatus string

const (
	ApplicationPending                ApplicationStatus = "pending"
	ApplicationAcceptedByCourse       ApplicationStatus = "accepted_by_course"
	ApplicationAcceptedByProfessional ApplicationStatus = "accepted_by_professional"
	ApplicationRejected               ApplicationStatus = "rejected"
	ApplicationDenied                 ApplicationStatus = "denied"
	ApplicationWithdrawn              ApplicationStatus = "withdrawn"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:                {ApplicationAcceptedByCourse, ApplicationRejected, ApplicationWithdrawn},
	ApplicationAcceptedByCourse:       {ApplicationAcceptedByProfessional, ApplicationDenied, ApplicationRejected, ApplicationWithdrawn},
	ApplicationAcceptedByProfessional: {ApplicationWithdrawn},
}

// CanTransitionApplication reports whether from -> to is an edge of the application graph.
func CanTransitionApplication(from, to ApplicationStatus) bool {
	for _, next := range applicationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case ApplicationRejected, ApplicationDenied, ApplicationWithdrawn:
		return true
	}
	return false
}

// IsAccepted is true for either side of a mutual acceptance.
func (s ApplicationStatus) IsAccepted() bool {
	return s == ApplicationAcceptedByCourse || s == ApplicationAcceptedByProfessional
}

type Application struct {
	ID           string            `json:"id"`
	JobID        string            `json:"jobId"`
	ApplicantID  string            `json:"applicantId"`
	Message      string            `json:"message"`
	ProposedRate float64           `json:"proposedRate"`
	Status       ApplicationStatus `json:"status"`
	AppliedAt    time.Time         `json:"appliedAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type CourseDecision string

const (
	DecisionAccept CourseDecision = "accept"
	DecisionReject CourseDecision = "reject"
)

type ProfessionalDecision string

const (
	DecisionConfirm ProfessionalDecision = "confirm"
	DecisionDeny    ProfessionalDecision = "deny"
)
