package estate

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Relationship is a dependant's relation to the deceased.
type Relationship string

const (
	RelationshipSpouse  Relationship = "SPOUSE"
	RelationshipChild   Relationship = "CHILD"
	RelationshipParent  Relationship = "PARENT"
	RelationshipSibling Relationship = "SIBLING"
	RelationshipOther   Relationship = "OTHER"
)

func (r Relationship) valid() bool {
	switch r {
	case RelationshipSpouse, RelationshipChild, RelationshipParent, RelationshipSibling, RelationshipOther:
		return true
	}
	return false
}

// ClaimStatus is the state of a dependant's claim for provision.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "PENDING"
	ClaimApproved ClaimStatus = "APPROVED"
	ClaimRejected ClaimStatus = "REJECTED"
)

var claimTransitions = transitionTable[ClaimStatus]{
	{ClaimPending, "approve"}: ClaimApproved,
	{ClaimPending, "reject"}:  ClaimRejected,
}

// Dependant is a person claiming provision from the estate.
type Dependant struct {
	ID           uuid.UUID    `json:"id"`
	EstateID     uuid.UUID    `json:"estate_id"`
	Name         string       `json:"name"`
	IdentityRef  string       `json:"identity_ref,omitempty"`
	Relationship Relationship `json:"relationship"`
	IsMinor      bool         `json:"is_minor"`
	DateOfBirth  *time.Time   `json:"date_of_birth,omitempty"`
	ClaimStatus  ClaimStatus  `json:"claim_status"`
	ClaimNotes   string       `json:"claim_notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// DependantInput describes a dependant to register.
type DependantInput struct {
	ID           uuid.UUID
	Name         string
	IdentityRef  string
	Relationship Relationship
	IsMinor      bool
	DateOfBirth  *time.Time
}

// NewDependant validates in and registers a PENDING claim.
func NewDependant(estateID uuid.UUID, in DependantInput, now time.Time) (*Dependant, error) {
	const op = "Dependant.New"
	if estateID == uuid.Nil {
		return nil, validationErr(op, nil, "missing estate id")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationErr(op, nil, "dependant name is required")
	}
	if !in.Relationship.valid() {
		return nil, validationErr(op, nil, "unknown relationship %q", in.Relationship)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now = now.UTC()
	return &Dependant{
		ID:           id,
		EstateID:     estateID,
		Name:         name,
		IdentityRef:  strings.TrimSpace(in.IdentityRef),
		Relationship: in.Relationship,
		IsMinor:      in.IsMinor,
		DateOfBirth:  cloneTime(in.DateOfBirth),
		ClaimStatus:  ClaimPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ResolveClaim approves or rejects a pending claim.
func (d *Dependant) ResolveClaim(approved bool, notes string, at time.Time) error {
	action := "reject"
	if approved {
		action = "approve"
	}
	next, ok := claimTransitions.next(d.ClaimStatus, action)
	if !ok {
		return transitionErr("Dependant.ResolveClaim", "dependant "+d.ID.String(), string(d.ClaimStatus), action)
	}
	d.ClaimStatus = next
	d.ClaimNotes = strings.TrimSpace(notes)
	d.UpdatedAt = at.UTC()
	return nil
}

func (d *Dependant) clone() *Dependant {
	c := *d
	c.DateOfBirth = cloneTime(d.DateOfBirth)
	return &c
}
