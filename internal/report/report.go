// Package report assembles the annual report from a ledger and guards the
// tax recalculation that editing the report triggers.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raketrapport/raket/internal/auditlog"
	"github.com/raketrapport/raket/internal/engine"
	"github.com/raketrapport/raket/internal/model"
	"github.com/raketrapport/raket/internal/rules"
	"github.com/raketrapport/raket/internal/tax"
)

// WarnPensionDiscrepancy flags less special payroll tax booked than the
// pension premiums call for.
const WarnPensionDiscrepancy = "pension_discrepancy"

// Report is the computed annual report.
type Report struct {
	Company  model.CompanyInfo                  `json:"company_info"`
	Accounts model.Balances                     `json:"current_accounts"`
	RR       []model.LineItem                   `json:"rr_data"`
	BR       []model.LineItem                   `json:"br_data"`
	INK2     []model.TaxVariable                `json:"ink2_data"`
	Pension  tax.Pension                        `json:"pension"`
	Warnings []tax.Warning                      `json:"warnings,omitempty"`
	Issues   map[rules.TableName][]engine.Issue `json:"issues,omitempty"`
}

// TaxRequest returns the recalculation request matching the report, without
// manual amounts.
func (r *Report) TaxRequest() tax.Request {
	return tax.Request{
		CurrentAccounts: r.Accounts,
		FiscalYear:      r.Company.FiscalYear,
		RRData:          r.RR,
		BRData:          r.BR,
	}
}

// FaultError is an unexpected failure inside the tax recalculation. The
// full input has been logged under IncidentID.
type FaultError struct {
	IncidentID string
	Err        error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("internal error (incident %s)", e.IncidentID)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

// Service builds reports and runs tax recalculations and decisions.
type Service struct {
	catalog *rules.Catalog
	recalc  tax.Recalculator
	audit   *auditlog.Log
	logger  *zap.Logger
	newID   func() string
}

// NewService returns a Service. A nil audit log disables the audit trail.
func NewService(taxes *tax.Service, audit *auditlog.Log, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog: taxes.Catalog(),
		recalc:  taxes,
		audit:   audit,
		logger:  logger,
		newID:   func() string { return uuid.NewString() },
	}
}

// Catalog returns the rule catalog reports are built from.
func (s *Service) Catalog() *rules.Catalog {
	return s.catalog
}

// Build evaluates RR, then BR with the RR results, then the INK2 tax
// calculation, and checks the pension payroll tax.
func (s *Service) Build(ctx context.Context, ledger model.Ledger) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ledger.Current == nil {
		ledger.Current = model.Balances{}
	}
	fy := ledger.Company.FiscalYear
	rates := s.catalog.Rates()

	rr := engine.Aggregate(s.catalog.Table(rules.TableRR), ledger, engine.Options{FiscalYear: fy, Rates: rates})
	br := engine.Aggregate(s.catalog.Table(rules.TableBR), ledger, engine.Options{
		FiscalYear: fy,
		Rates:      rates,
		Inputs:     map[rules.TableName][]model.LineItem{rules.TableRR: rr.Items},
	})

	rep := &Report{
		Company:  ledger.Company,
		Accounts: ledger.Current,
		RR:       rr.Items,
		BR:       br.Items,
		Pension:  tax.PensionCheck(ledger.Current, tax.PensionRate(rates, fy)),
	}

	res, err := s.Recalculate(ctx, "", rep.TaxRequest())
	if err != nil {
		return nil, err
	}
	rep.INK2 = res.Variables
	rep.Warnings = res.Warnings

	if rep.Pension.NeedsAdjustment() {
		rep.Warnings = append(rep.Warnings, tax.Warning{
			Code:     WarnPensionDiscrepancy,
			Variable: tax.PensionVariable,
			Message: fmt.Sprintf("special payroll tax on pension premiums is %s lower than calculated",
				rep.Pension.Discrepancy().StringFixed(2)),
		})
	}

	issues := map[rules.TableName][]engine.Issue{}
	for table, list := range map[rules.TableName][]engine.Issue{
		rules.TableRR:   rr.Issues,
		rules.TableBR:   br.Issues,
		rules.TableINK2: res.Issues,
	} {
		if len(list) > 0 {
			issues[table] = list
		}
	}
	if len(issues) > 0 {
		rep.Issues = issues
	}

	reportsBuilt.Inc()
	s.logger.Info("report built",
		zap.String("op", "report.Build"),
		zap.String("company", ledger.Company.Name),
		zap.Int("fiscal_year", fy),
		zap.Int("warnings", len(rep.Warnings)))
	return rep, nil
}

// Recalculate recomputes the tax variables for req and records the manual
// inputs it applied under session. Panics and unexpected errors are logged
// with the full request and come back as a *FaultError.
func (s *Service) Recalculate(ctx context.Context, session string, req tax.Request) (*tax.Result, error) {
	res, err := s.recalculate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(res.Audit) > 0 {
		if session == "" {
			session = s.newID()
		}
		s.record(session, res.Audit)
	}
	return res, nil
}

// recalculate runs one guarded recalculation without touching the audit log.
func (s *Service) recalculate(ctx context.Context, req tax.Request) (res *tax.Result, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, s.fault(req, fmt.Errorf("panic: %v", p), debug.Stack())
		}
		recalculationDuration.Observe(time.Since(start).Seconds())
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			recalculationsTotal.WithLabelValues(outcomeCancelled).Inc()
		case err != nil:
			recalculationsTotal.WithLabelValues(outcomeFault).Inc()
		case len(res.Warnings) > 0:
			recalculationsTotal.WithLabelValues(outcomeWarning).Inc()
		default:
			recalculationsTotal.WithLabelValues(outcomeOK).Inc()
		}
	}()

	res, err = s.recalc.Recalculate(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, s.fault(req, err, nil)
	}
	return res, nil
}

func (s *Service) fault(req tax.Request, cause error, stack []byte) *FaultError {
	id := s.newID()
	fields := []zap.Field{
		zap.String("op", "report.Recalculate"),
		zap.String("incident_id", id),
		zap.Error(cause),
	}
	if payload, err := json.Marshal(req); err == nil {
		fields = append(fields, zap.ByteString("request", payload))
	} else {
		fields = append(fields, zap.String("request_error", err.Error()))
	}
	if stack != nil {
		fields = append(fields, zap.ByteString("stack", stack))
	}
	s.logger.Error("tax recalculation failed", fields...)
	return &FaultError{IncidentID: id, Err: cause}
}

func (s *Service) record(session string, entries []tax.AuditEntry) {
	if err := s.audit.Record(session, entries); err != nil {
		s.logger.Warn("writing audit log failed",
			zap.String("op", "report.audit"),
			zap.String("session", session),
			zap.Error(err))
	}
}
