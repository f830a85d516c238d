// Package invitations manages invitation links: the bounded-use,
// optionally expiring tokens that admit a new user into an organization at
// a fixed role.
package invitations

import (
	"fmt"
	"time"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
)

// Reason explains why an invitation cannot be used
type Reason string

const (
	ReasonNotFound  Reason = "not_found"
	ReasonInactive  Reason = "inactive"
	ReasonExpired   Reason = "expired"
	ReasonExhausted Reason = "exhausted"
)

// Result is the outcome of validating an invitation. OrganizationID and
// Role are only set when Valid.
type Result struct {
	Valid          bool        `json:"valid"`
	OrganizationID uuid.UUID   `json:"organization_id,omitempty"`
	Role           models.Role `json:"role,omitempty"`
	Reason         Reason      `json:"reason,omitempty"`
}

// InvalidError is returned by operations that need a usable invitation
type InvalidError struct {
	Reason Reason
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invitation %s", e.Reason)
}

// Err returns nil for a valid result and an *InvalidError otherwise
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &InvalidError{Reason: r.Reason}
}

// Validate checks a loaded invitation at time now. A nil link is reported
// as not found. The first failing check determines the reason.
func Validate(link *models.InvitationLink, now time.Time) Result {
	switch {
	case link == nil:
		return Result{Reason: ReasonNotFound}
	case !link.Active:
		return Result{Reason: ReasonInactive}
	case link.Expires != nil && now.After(*link.Expires):
		return Result{Reason: ReasonExpired}
	case link.MaxUses != nil && link.UsedCount >= *link.MaxUses:
		return Result{Reason: ReasonExhausted}
	}
	return Result{Valid: true, OrganizationID: link.OrganizationID, Role: link.Role}
}

// Admit applies a valid invitation to a registering user: the role the
// registration asked for is discarded, the user is approved and placed in
// the invitation's organization.
func Admit(res Result, user *models.User) error {
	if err := res.Err(); err != nil {
		return err
	}
	user.Role = res.Role
	user.IsApproved = true
	user.CurrentOrganizationID = res.OrganizationID
	return nil
}

// Consume records one successful registration against the link
func Consume(link *models.InvitationLink) {
	link.UsedCount++
}
