package estate

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// AssetType is derived from the populated detail variant.
type AssetType string

const (
	AssetTypeLand      AssetType = "LAND"
	AssetTypeVehicle   AssetType = "VEHICLE"
	AssetTypeFinancial AssetType = "FINANCIAL"
	AssetTypeBusiness  AssetType = "BUSINESS"
)

// AssetDetails is the type-specific description of an asset. Exactly one of
// LandDetails, VehicleDetails, FinancialDetails or BusinessDetails.
type AssetDetails interface {
	AssetType() AssetType
	validate() error
}

type LandDetails struct {
	TitleNumber  string          `json:"title_number"`
	ParcelNumber string          `json:"parcel_number,omitempty"`
	County       string          `json:"county,omitempty"`
	SizeAcres    decimal.Decimal `json:"size_acres"`
	LandUse      string          `json:"land_use,omitempty"`
}

func (LandDetails) AssetType() AssetType { return AssetTypeLand }

func (d LandDetails) validate() error {
	if strings.TrimSpace(d.TitleNumber) == "" {
		return validationErr("LandDetails", nil, "title number is required")
	}
	if d.SizeAcres.IsNegative() {
		return validationErr("LandDetails", nil, "size %s is negative", d.SizeAcres)
	}
	return nil
}

type VehicleDetails struct {
	RegistrationNumber string `json:"registration_number"`
	Make               string `json:"make,omitempty"`
	Model              string `json:"model,omitempty"`
	Year               int    `json:"year,omitempty"`
	ChassisNumber      string `json:"chassis_number,omitempty"`
}

func (VehicleDetails) AssetType() AssetType { return AssetTypeVehicle }

func (d VehicleDetails) validate() error {
	if strings.TrimSpace(d.RegistrationNumber) == "" {
		return validationErr("VehicleDetails", nil, "registration number is required")
	}
	if d.Year < 0 {
		return validationErr("VehicleDetails", nil, "year %d is invalid", d.Year)
	}
	return nil
}

// FinancialInstrument names the holding behind a financial asset.
type FinancialInstrument string

const (
	InstrumentBankAccount FinancialInstrument = "BANK_ACCOUNT"
	InstrumentShares      FinancialInstrument = "SHARES"
	InstrumentBond        FinancialInstrument = "BOND"
	InstrumentPension     FinancialInstrument = "PENSION"
	InstrumentInsurance   FinancialInstrument = "INSURANCE"
)

type FinancialDetails struct {
	Institution   string              `json:"institution"`
	AccountNumber string              `json:"account_number,omitempty"`
	Instrument    FinancialInstrument `json:"instrument"`
	Units         decimal.Decimal     `json:"units"`
}

func (FinancialDetails) AssetType() AssetType { return AssetTypeFinancial }

func (d FinancialDetails) validate() error {
	if strings.TrimSpace(d.Institution) == "" {
		return validationErr("FinancialDetails", nil, "institution is required")
	}
	switch d.Instrument {
	case InstrumentBankAccount, InstrumentShares, InstrumentBond, InstrumentPension, InstrumentInsurance:
	default:
		return validationErr("FinancialDetails", nil, "unknown instrument %q", d.Instrument)
	}
	if d.Units.IsNegative() {
		return validationErr("FinancialDetails", nil, "units %s is negative", d.Units)
	}
	return nil
}

type BusinessDetails struct {
	BusinessName       string          `json:"business_name"`
	RegistrationNumber string          `json:"registration_number,omitempty"`
	BusinessType       string          `json:"business_type,omitempty"`
	OwnershipPercent   decimal.Decimal `json:"ownership_percent"`
}

func (BusinessDetails) AssetType() AssetType { return AssetTypeBusiness }

func (d BusinessDetails) validate() error {
	if strings.TrimSpace(d.BusinessName) == "" {
		return validationErr("BusinessDetails", nil, "business name is required")
	}
	if !d.OwnershipPercent.IsPositive() || d.OwnershipPercent.GreaterThan(hundredPercent) {
		return validationErr("BusinessDetails", nil, "ownership percent %s must be within (0,100]", d.OwnershipPercent)
	}
	return nil
}

type detailsEnvelope struct {
	Kind      AssetType         `json:"kind"`
	Land      *LandDetails      `json:"land,omitempty"`
	Vehicle   *VehicleDetails   `json:"vehicle,omitempty"`
	Financial *FinancialDetails `json:"financial,omitempty"`
	Business  *BusinessDetails  `json:"business,omitempty"`
}

// MarshalAssetDetails encodes d as a tagged envelope.
func MarshalAssetDetails(d AssetDetails) ([]byte, error) {
	env := detailsEnvelope{}
	switch v := d.(type) {
	case LandDetails:
		env.Kind, env.Land = v.AssetType(), &v
	case VehicleDetails:
		env.Kind, env.Vehicle = v.AssetType(), &v
	case FinancialDetails:
		env.Kind, env.Financial = v.AssetType(), &v
	case BusinessDetails:
		env.Kind, env.Business = v.AssetType(), &v
	default:
		return nil, fmt.Errorf("unsupported asset details %T", d)
	}
	return json.Marshal(env)
}

// UnmarshalAssetDetails decodes an envelope written by MarshalAssetDetails.
func UnmarshalAssetDetails(raw []byte) (AssetDetails, error) {
	var env detailsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var out AssetDetails
	switch {
	case env.Kind == AssetTypeLand && env.Land != nil:
		out = *env.Land
	case env.Kind == AssetTypeVehicle && env.Vehicle != nil:
		out = *env.Vehicle
	case env.Kind == AssetTypeFinancial && env.Financial != nil:
		out = *env.Financial
	case env.Kind == AssetTypeBusiness && env.Business != nil:
		out = *env.Business
	default:
		return nil, fmt.Errorf("asset details envelope %q carries no matching variant", env.Kind)
	}
	return out, nil
}
