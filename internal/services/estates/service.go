package estates

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domainagg "github.com/yungbote/estate-backend/internal/domain/aggregates"
	"github.com/yungbote/estate-backend/internal/domain/estate"
	"github.com/yungbote/estate-backend/internal/domain/money"
	"github.com/yungbote/estate-backend/internal/observability"
	"github.com/yungbote/estate-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/estate-backend/internal/services/estates")

// Intent is one command addressed to one estate, with the actor and correlation id
// recorded on every event it produces.
type Intent struct {
	EstateID uuid.UUID
	Command  Command
	Metadata estate.CommandMetadata
}

// Registration opens a new estate for a deceased person.
type Registration struct {
	Input    estate.EstateInput
	Metadata estate.CommandMetadata
}

// Result is a committed command. Events are the ones the command buffered, in
// commit order.
type Result struct {
	Estate   *estate.Estate
	Events   []estate.Event
	Attempts int
}

// Summary is the read model of an estate's financial position.
type Summary struct {
	EstateID             uuid.UUID                    `json:"estate_id"`
	Status               estate.EstateStatus          `json:"status"`
	IsFrozen             bool                         `json:"is_frozen"`
	Version              int64                        `json:"version"`
	CashOnHand           money.Money                  `json:"cash_on_hand"`
	CashReservedForDebts money.Money                  `json:"cash_reserved_for_debts"`
	AvailableCash        money.Money                  `json:"available_cash"`
	GrossValue           money.Money                  `json:"gross_value"`
	Liabilities          money.Money                  `json:"liabilities"`
	NetWorth             money.Money                  `json:"net_worth"`
	Hotchpot             money.Money                  `json:"hotchpot"`
	DistributablePool    money.Money                  `json:"distributable_pool"`
	Solvency             estate.Solvency              `json:"solvency"`
	Readiness            estate.DistributionReadiness `json:"readiness"`
	Liquidations         []LiquidationSummary         `json:"liquidations"`
}

// LiquidationSummary is one asset's active liquidation and the actions it accepts next.
type LiquidationSummary struct {
	AssetID          uuid.UUID                  `json:"asset_id"`
	LiquidationID    uuid.UUID                  `json:"liquidation_id"`
	Status           estate.LiquidationStatus   `json:"status"`
	AvailableActions []estate.LiquidationAction `json:"available_actions"`
}

type Service interface {
	Register(ctx context.Context, reg Registration) (*Result, error)
	Execute(ctx context.Context, intent Intent) (*Result, error)
	Get(ctx context.Context, id uuid.UUID) (*estate.Estate, error)
	GetByDeceased(ctx context.Context, deceasedID uuid.UUID) (*estate.Estate, error)
	Summary(ctx context.Context, id uuid.UUID) (Summary, error)
	PlanDistribution(ctx context.Context, id uuid.UUID, shares []estate.BeneficiaryShare) ([]estate.DistributionLine, error)
}

type Deps struct {
	Repo   estate.Repository
	Log    *logger.Logger
	Policy estate.Policy
	// Retries bounds reload-and-reapply attempts after a version conflict.
	Retries int
}

type service struct {
	repo    estate.Repository
	log     *logger.Logger
	policy  estate.Policy
	retries int
}

func NewService(deps Deps) Service {
	retries := deps.Retries
	if retries < 0 {
		retries = 0
	}
	return &service{
		repo:    deps.Repo,
		log:     deps.Log.With("service", "EstateService"),
		policy:  deps.Policy,
		retries: retries,
	}
}

func (s *service) Register(ctx context.Context, reg Registration) (res *Result, err error) {
	const op = "EstateService.Register"
	ctx, done := s.observe(ctx, "RegisterEstate")
	defer func() { done(err) }()

	meta, err := normalizeMetadata(op, reg.Metadata)
	if err != nil {
		return nil, err
	}
	if reg.Input.DeceasedID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "deceased id is required", nil)
	}
	exists, err := s.repo.ExistsForDeceased(ctx, reg.Input.DeceasedID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domainagg.NewError(domainagg.CodeConflict, op, "an estate is already registered for this deceased", estate.ErrDuplicateEstate)
	}
	e, err := estate.NewEstate(reg.Input, s.policy, meta)
	if err != nil {
		return nil, err
	}
	events := e.PendingEvents()
	if err := s.repo.Save(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("estate registered", "estate_id", e.ID(), "deceased_id", e.DeceasedID(), "actor", meta.Actor)
	return &Result{Estate: e, Events: events, Attempts: 1}, nil
}

// Execute loads the estate, applies the command and saves it. A version conflict
// reloads and reapplies up to the configured retry budget; any other failure is
// returned as is, with unknown ids surfaced as not_found.
func (s *service) Execute(ctx context.Context, intent Intent) (res *Result, err error) {
	const op = "EstateService.Execute"
	name := "unknown"
	if intent.Command != nil {
		name = intent.Command.Name()
	}
	ctx, done := s.observe(ctx, name)
	defer func() { done(err) }()

	if intent.Command == nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "command is required", nil)
	}
	if intent.EstateID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "estate id is required", nil)
	}
	meta, err := normalizeMetadata(op, intent.Metadata)
	if err != nil {
		return nil, err
	}
	if c, ok := intent.Command.(creator); ok {
		c.ensureID()
	}

	for attempt := 1; ; attempt++ {
		e, err := s.load(ctx, op, intent.EstateID)
		if err != nil {
			return nil, err
		}
		e.SetCommandMetadata(meta)
		if err := intent.Command.Apply(e); err != nil {
			return nil, asNotFound(op, err)
		}
		events := e.PendingEvents()
		err = s.repo.Save(ctx, e)
		if err == nil {
			return &Result{Estate: e, Events: events, Attempts: attempt}, nil
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) || attempt > s.retries {
			return nil, err
		}
		s.log.Debug("estate version conflict, retrying", "estate_id", intent.EstateID, "command", name, "attempt", attempt)
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*estate.Estate, error) {
	return s.load(ctx, "EstateService.Get", id)
}

func (s *service) GetByDeceased(ctx context.Context, deceasedID uuid.UUID) (*estate.Estate, error) {
	const op = "EstateService.GetByDeceased"
	e, err := s.repo.FindByDeceasedID(ctx, deceasedID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "no estate registered for deceased", nil)
	}
	return e, nil
}

func (s *service) Summary(ctx context.Context, id uuid.UUID) (Summary, error) {
	e, err := s.load(ctx, "EstateService.Summary", id)
	if err != nil {
		return Summary{}, err
	}
	return summarize(e)
}

func (s *service) PlanDistribution(ctx context.Context, id uuid.UUID, shares []estate.BeneficiaryShare) ([]estate.DistributionLine, error) {
	e, err := s.load(ctx, "EstateService.PlanDistribution", id)
	if err != nil {
		return nil, err
	}
	return e.PlanDistribution(shares)
}

func (s *service) load(ctx context.Context, op string, id uuid.UUID) (*estate.Estate, error) {
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "estate id is required", nil)
	}
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domainagg.Errorf(domainagg.CodeNotFound, op, nil, "estate %s not found", id)
	}
	return e, nil
}

// observe opens the command span and returns a closer that records the outcome.
func (s *service) observe(ctx context.Context, command string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "estate.command."+command)
	span.SetAttributes(attribute.String("estate.command", command))
	return ctx, func(err error) {
		status := commandStatus(err)
		span.SetAttributes(attribute.String("estate.command.status", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		observability.Current().ObserveCommand(command, status, time.Since(start))
		if status == string(domainagg.CodeInternal) || status == string(domainagg.CodeRetryable) {
			s.log.Error("estate command failed", "command", command, "status", status, "error", err)
		}
	}
}

func summarize(e *estate.Estate) (Summary, error) {
	out := Summary{
		EstateID:             e.ID(),
		Status:               e.Status(),
		IsFrozen:             e.IsFrozen(),
		Version:              e.Version(),
		CashOnHand:           e.CashOnHand(),
		CashReservedForDebts: e.CashReservedForDebts(),
		AvailableCash:        e.AvailableCash(),
		Solvency:             e.Solvency(),
		Readiness:            e.ValidateDistributionReadiness(),
		Liquidations:         []LiquidationSummary{},
	}
	for _, a := range e.Assets() {
		if a.Liquidation == nil {
			continue
		}
		out.Liquidations = append(out.Liquidations, LiquidationSummary{
			AssetID:          a.ID,
			LiquidationID:    a.Liquidation.ID,
			Status:           a.Liquidation.Status,
			AvailableActions: a.Liquidation.AvailableActions(),
		})
	}
	var err error
	if out.GrossValue, err = e.CalculateGrossValue(); err != nil {
		return Summary{}, err
	}
	if out.Liabilities, err = e.CalculateLiabilities(); err != nil {
		return Summary{}, err
	}
	if out.NetWorth, err = e.CalculateNetWorth(); err != nil {
		return Summary{}, err
	}
	if out.Hotchpot, err = e.CalculateHotchpot(); err != nil {
		return Summary{}, err
	}
	if out.DistributablePool, err = e.CalculateDistributablePool(); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func normalizeMetadata(op string, meta estate.CommandMetadata) (estate.CommandMetadata, error) {
	meta.Actor = strings.TrimSpace(meta.Actor)
	if meta.Actor == "" {
		return meta, domainagg.NewError(domainagg.CodeValidation, op, "actor is required", nil)
	}
	meta.CorrelationID = strings.TrimSpace(meta.CorrelationID)
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}
	return meta, nil
}

// asNotFound turns an id that is not part of the loaded estate into not_found.
func asNotFound(op string, err error) error {
	if !errors.Is(err, estate.ErrUnknownChild) {
		return err
	}
	return domainagg.NewError(domainagg.CodeNotFound, op, err.Error(), err)
}

func commandStatus(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	return string(domainagg.CodeInternal)
}
