package estate

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	hundredPercent = decimal.NewFromInt(100)
	minSharePct    = decimal.RequireFromString("0.01")
)

// OwnershipType is the legal form of co-ownership.
type OwnershipType string

const (
	// JointTenancy passes the whole asset to surviving co-owners.
	JointTenancy OwnershipType = "JOINT_TENANCY"
	// TenancyInCommon gives each owner a separate, estate-eligible share.
	TenancyInCommon OwnershipType = "TENANCY_IN_COMMON"
)

func (t OwnershipType) valid() bool { return t == JointTenancy || t == TenancyInCommon }

// AssetCoOwner is a third party's claimed interest in an asset.
type AssetCoOwner struct {
	ID              uuid.UUID       `json:"id"`
	AssetID         uuid.UUID       `json:"asset_id"`
	OwnerIdentity   string          `json:"owner_identity"`
	OwnerName       string          `json:"owner_name,omitempty"`
	SharePercentage decimal.Decimal `json:"share_percentage"`
	OwnershipType   OwnershipType   `json:"ownership_type"`
	IsActive        bool            `json:"is_active"`
	IsVerified      bool            `json:"is_verified"`
	VerifiedBy      string          `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
	EvidenceRef     *string         `json:"evidence_ref,omitempty"`
	DeactivatedAt   *time.Time      `json:"deactivated_at,omitempty"`
	AddedAt         time.Time       `json:"added_at"`
}

// CoOwnerInput describes a co-owner claim to register.
type CoOwnerInput struct {
	ID              uuid.UUID
	OwnerIdentity   string
	OwnerName       string
	SharePercentage decimal.Decimal
	OwnershipType   OwnershipType
	EvidenceRef     *string
}

// ReducesEstateShare reports whether this claim currently counts against the estate.
func (c *AssetCoOwner) ReducesEstateShare() bool { return c.IsActive && c.IsVerified }

func (c *AssetCoOwner) verify(by string, evidenceRef *string, at time.Time) error {
	const op = "AssetCoOwner.Verify"
	if !c.IsActive {
		return illegalState(op, nil, "co-owner %s is inactive", c.ID)
	}
	if c.IsVerified {
		return illegalState(op, ErrAlreadyVerified, "co-owner %s was already verified by %s", c.ID, c.VerifiedBy)
	}
	by = strings.TrimSpace(by)
	if by == "" {
		return validationErr(op, nil, "verifier is required")
	}
	at = at.UTC()
	c.IsVerified = true
	c.VerifiedBy = by
	c.VerifiedAt = &at
	if evidenceRef != nil {
		ref := strings.TrimSpace(*evidenceRef)
		c.EvidenceRef = &ref
	}
	return nil
}

func (c *AssetCoOwner) deactivate(at time.Time) error {
	if !c.IsActive {
		return illegalState("AssetCoOwner.Deactivate", nil, "co-owner %s is already inactive", c.ID)
	}
	at = at.UTC()
	c.IsActive = false
	c.DeactivatedAt = &at
	return nil
}

// CoOwnership is the co-ownership structure of one asset.
type CoOwnership struct {
	OwnershipType OwnershipType  `json:"ownership_type"`
	CoOwners      []AssetCoOwner `json:"co_owners"`
}

// TotalSharePercentage sums active claims, verified or not.
func (c *CoOwnership) TotalSharePercentage() decimal.Decimal {
	total := decimal.Zero
	for _, o := range c.CoOwners {
		if o.IsActive {
			total = total.Add(o.SharePercentage)
		}
	}
	return total
}

// VerifiedSharePercentage sums claims that are both active and verified.
func (c *CoOwnership) VerifiedSharePercentage() decimal.Decimal {
	total := decimal.Zero
	for _, o := range c.CoOwners {
		if o.ReducesEstateShare() {
			total = total.Add(o.SharePercentage)
		}
	}
	return total
}

// HasSurvivor reports a joint tenancy with at least one active, verified co-owner.
func (c *CoOwnership) HasSurvivor() bool {
	if c.OwnershipType != JointTenancy {
		return false
	}
	for _, o := range c.CoOwners {
		if o.ReducesEstateShare() {
			return true
		}
	}
	return false
}

func (c *CoOwnership) find(id uuid.UUID) *AssetCoOwner {
	for i := range c.CoOwners {
		if c.CoOwners[i].ID == id {
			return &c.CoOwners[i]
		}
	}
	return nil
}

func (c *CoOwnership) clone() *CoOwnership {
	out := &CoOwnership{OwnershipType: c.OwnershipType, CoOwners: make([]AssetCoOwner, len(c.CoOwners))}
	for i, o := range c.CoOwners {
		cp := o
		if o.VerifiedAt != nil {
			t := *o.VerifiedAt
			cp.VerifiedAt = &t
		}
		if o.EvidenceRef != nil {
			s := *o.EvidenceRef
			cp.EvidenceRef = &s
		}
		if o.DeactivatedAt != nil {
			t := *o.DeactivatedAt
			cp.DeactivatedAt = &t
		}
		out.CoOwners[i] = cp
	}
	return out
}

func validateSharePercentage(op string, pct decimal.Decimal) error {
	if pct.LessThan(minSharePct) || pct.GreaterThan(hundredPercent) {
		return validationErr(op, nil, "share percentage %s must be within 0.01..100", pct)
	}
	if !pct.Equal(pct.Truncate(2)) {
		return validationErr(op, nil, "share percentage %s has more than two fractional digits", pct)
	}
	return nil
}
