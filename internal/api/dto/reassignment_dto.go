package dto

type CreateReassignmentRequest struct {
	AssignmentID string `json:"assignmentId" binding:"required,uuid"`
	TargetUserID string `json:"targetUserId" binding:"required,uuid"`
	Reason       string `json:"reason" binding:"required,notblank"`
}

type DecideReassignmentRequest struct {
	Note string `json:"note"`
}

type ListReassignmentsRequest struct {
	Status string `form:"status"`
}

// ReassignRequest moves an assignment directly. ExpectedUserID guards against
// overwriting a concurrent change. Fields are checked by the workflow once the
// caller's role is known to allow the move.
type ReassignRequest struct {
	AssignmentID   string  `json:"assignmentId"`
	NewUserID      string  `json:"newUserId"`
	ExpectedUserID *string `json:"expectedUserId"`
}
