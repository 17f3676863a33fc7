package models

// AdmissionOutcome is the result of a registration attempt.
type AdmissionOutcome string

const (
	OutcomeAdmitted        AdmissionOutcome = "ADMITTED"
	OutcomeFull            AdmissionOutcome = "FULL"
	OutcomeNotFound        AdmissionOutcome = "NOT_FOUND"
	OutcomeAlreadyAssigned AdmissionOutcome = "ALREADY_ASSIGNED"
)
