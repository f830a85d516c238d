package access

// Reason is a machine-readable denial reason
type Reason string

const (
	ReasonInsufficientRole  Reason = "insufficient_role"
	ReasonNotOwner          Reason = "not_owner"
	ReasonNotApproved       Reason = "not_approved"
	ReasonCrossOrganization Reason = "cross_organization"
)

// Decision is the outcome of a policy evaluation. A denial is a normal value, not an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Message returns a user-facing explanation for a denial
func (d Decision) Message(action Action) string {
	if d.Allowed {
		return ""
	}
	switch d.Reason {
	case ReasonNotApproved:
		return "Your account is awaiting approval"
	case ReasonCrossOrganization:
		return "This resource belongs to another organization"
	case ReasonNotOwner:
		switch action {
		case ActionTaskRead:
			return "You can only view tasks assigned to you"
		case ActionTaskUpdate:
			return "You can only edit tasks assigned to you"
		case ActionTaskDelete:
			return "You can only delete tasks you own"
		}
		return "You do not own this resource"
	default:
		return "Your role does not allow this action"
	}
}
