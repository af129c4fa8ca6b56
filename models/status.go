package models

// IssueStatus enum
type IssueStatus string

const (
	Submitted    IssueStatus = "SUBMITTED"
	Acknowledged IssueStatus = "ACKNOWLEDGED"
	Assigned     IssueStatus = "ASSIGNED"
	InProgress   IssueStatus = "IN_PROGRESS"
	Resolved     IssueStatus = "RESOLVED"
	Verified     IssueStatus = "VERIFIED"
)

// Statuses lists every status in workflow order.
var Statuses = []IssueStatus{Submitted, Acknowledged, Assigned, InProgress, Resolved, Verified}

func (s IssueStatus) IsValid() bool {
	switch s {
	case Submitted, Acknowledged, Assigned, InProgress, Resolved, Verified:
		return true
	}
	return false
}

// OfficialNext returns the only status an official may move s to.
// RESOLVED and VERIFIED have no official successor.
func (s IssueStatus) OfficialNext() (IssueStatus, bool) {
	switch s {
	case Submitted:
		return Acknowledged, true
	case Acknowledged:
		return Assigned, true
	case Assigned:
		return InProgress, true
	case InProgress:
		return Resolved, true
	case Resolved, Verified:
		return "", false
	}
	// unknown values have no successor
	return "", false
}

// IsOpen reports whether the issue still needs work from officials.
func (s IssueStatus) IsOpen() bool {
	switch s {
	case Submitted, Acknowledged, Assigned, InProgress:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition exists.
func (s IssueStatus) IsTerminal() bool {
	return s == Verified
}

func (s IssueStatus) String() string {
	return string(s)
}
