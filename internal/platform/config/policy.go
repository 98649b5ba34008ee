package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/estate-backend/internal/domain/estate"
)

const policyFileEnv = "ESTATE_POLICY_FILE"

//go:embed policy.yaml
var policyFS embed.FS

type yamlPolicy struct {
	Policy                     string   `yaml:"policy"`
	Version                    int      `yaml:"version"`
	Currency                   string   `yaml:"currency"`
	SubstantialGiftPercent     string   `yaml:"substantial_gift_percent"`
	AutoReserveOnDebt          *bool    `yaml:"auto_reserve_on_debt"`
	MaxCommissionRate          string   `yaml:"max_commission_rate"`
	SaleValidation             string   `yaml:"sale_validation"`
	TargetBand                 yamlBand `yaml:"target_band"`
	MandatoryPriorityTierLimit int      `yaml:"mandatory_priority_tier_limit"`
}

type yamlBand struct {
	Low  string `yaml:"low"`
	High string `yaml:"high"`
}

// LoadPolicy reads the policy file named by ESTATE_POLICY_FILE, or the embedded
// default when the variable is unset.
func LoadPolicy() (estate.Policy, error) {
	data, err := readPolicyFile()
	if err != nil {
		return estate.Policy{}, err
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document. Missing fields keep the
// DefaultPolicy value.
func ParsePolicy(data []byte) (estate.Policy, error) {
	var doc yamlPolicy
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return estate.Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	if strings.TrimSpace(doc.Policy) != "estate" {
		return estate.Policy{}, fmt.Errorf("unexpected policy document: %q", doc.Policy)
	}

	p := estate.DefaultPolicy()
	if c := strings.TrimSpace(doc.Currency); c != "" {
		p.Currency = strings.ToUpper(c)
	}
	if doc.AutoReserveOnDebt != nil {
		p.AutoReserveOnDebt = *doc.AutoReserveOnDebt
	}
	decimals := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"substantial_gift_percent", doc.SubstantialGiftPercent, &p.SubstantialGiftPercent},
		{"max_commission_rate", doc.MaxCommissionRate, &p.MaxCommissionRate},
		{"target_band.low", doc.TargetBand.Low, &p.TargetBandLow},
		{"target_band.high", doc.TargetBand.High, &p.TargetBandHigh},
	}
	for _, d := range decimals {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		v, err := decimal.NewFromString(strings.TrimSpace(d.raw))
		if err != nil {
			return estate.Policy{}, fmt.Errorf("policy %s: %w", d.name, err)
		}
		*d.dst = v
	}
	sv, err := estate.ParseSaleValidation(doc.SaleValidation)
	if err != nil {
		return estate.Policy{}, err
	}
	p.SaleValidation = sv
	if doc.MandatoryPriorityTierLimit != 0 {
		p.MandatoryPriorityTierLimit = estate.PriorityTier(doc.MandatoryPriorityTierLimit)
	}
	if err := p.Validate(); err != nil {
		return estate.Policy{}, err
	}
	return p, nil
}

func readPolicyFile() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(policyFileEnv)); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", policyFileEnv, err)
		}
		return data, nil
	}
	data, err := policyFS.ReadFile("policy.yaml")
	if err != nil {
		return nil, errors.Join(errors.New("embedded policy missing"), err)
	}
	return data, nil
}
