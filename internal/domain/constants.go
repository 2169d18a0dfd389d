package domain

// Role is the caller role carried by a session
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleTraffic    Role = "TRAFFIC"
	RoleCreative   Role = "CREATIVE"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleTraffic, RoleCreative:
		return true
	}
	return false
}

// AgencyBound reports whether a session with role r must name an agency
func (r Role) AgencyBound() bool {
	return r != RoleSuperAdmin
}

// Job status constants
const (
	JobStatusTodo       = "TODO"
	JobStatusInProgress = "IN_PROGRESS"
	JobStatusDone       = "DONE"
	JobStatusWon        = "WON"
)

// Reassignment request status constants
const (
	ReassignmentPending  = "PENDING"
	ReassignmentApproved = "APPROVED"
	ReassignmentRejected = "REJECTED"
)

// Recurrence interval units
const (
	IntervalDay   = "DAY"
	IntervalWeek  = "WEEK"
	IntervalMonth = "MONTH"
)

// SupersededNote is recorded on pending requests closed by a direct reassignment
const SupersededNote = "superseded by direct reassignment"
