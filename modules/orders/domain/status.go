package domain

// Status is the order's position in the saga state machine.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusPaid       Status = "PAID"
	StatusApproved   Status = "APPROVED"
	StatusCancelling Status = "CANCELLING"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusApproved, StatusCancelling, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the order can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusCancelled
}
