package model

// Operation is an action that reads or mutates a candidate's test state.
type Operation string

const (
	OpStartTest    Operation = "start_test"
	OpGetQuestion  Operation = "get_question"
	OpSubmitAnswer Operation = "submit_answer"
	OpCompleteTest Operation = "complete_test"
	OpRecordEvent  Operation = "record_event"
	OpGetStatus    Operation = "get_status"
	OpRequestLogin Operation = "request_login"
	OpBlock        Operation = "block"
	OpReset        Operation = "reset"
)

// transitions maps current status × operation to the resulting status.
// A missing entry means the operation is not allowed in that status.
var transitions = map[CandidateStatus]map[Operation]CandidateStatus{
	CandidateStatusNotStarted: {
		OpStartTest:    CandidateStatusInProgress,
		OpGetStatus:    CandidateStatusNotStarted,
		OpRequestLogin: CandidateStatusNotStarted,
		OpBlock:        CandidateStatusBlocked,
		OpReset:        CandidateStatusNotStarted,
	},
	CandidateStatusInProgress: {
		OpGetQuestion:  CandidateStatusInProgress,
		OpSubmitAnswer: CandidateStatusInProgress,
		OpCompleteTest: CandidateStatusCompleted,
		OpRecordEvent:  CandidateStatusInProgress,
		OpGetStatus:    CandidateStatusInProgress,
		OpRequestLogin: CandidateStatusInProgress,
		OpBlock:        CandidateStatusBlocked,
		OpReset:        CandidateStatusNotStarted,
	},
	CandidateStatusCompleted: {
		OpGetStatus: CandidateStatusCompleted,
		OpBlock:     CandidateStatusBlocked,
		OpReset:     CandidateStatusNotStarted,
	},
	CandidateStatusBlocked: {
		OpGetStatus: CandidateStatusBlocked,
	},
}

// Next returns the status reached by applying op, and whether op is allowed at all.
func (s CandidateStatus) Next(op Operation) (CandidateStatus, bool) {
	next, ok := transitions[s][op]
	return next, ok
}

// Allows reports whether op may run while the candidate is in status s.
func (s CandidateStatus) Allows(op Operation) bool {
	_, ok := s.Next(op)
	return ok
}

// Rank orders statuses along the forward path; BLOCKED sits past every other state.
func (s CandidateStatus) Rank() int {
	switch s {
	case CandidateStatusNotStarted:
		return 0
	case CandidateStatusInProgress:
		return 1
	case CandidateStatusCompleted:
		return 2
	case CandidateStatusBlocked:
		return 3
	}
	return -1
}
