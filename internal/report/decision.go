package report

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/raketrapport/raket/internal/tax"
)

// Decision is one step of the tax decision flow. The caller keeps the
// session and sends the state and request returned by the previous step.
type Decision struct {
	Session  string           `json:"session_id,omitempty"`
	State    tax.State        `json:"state,omitempty"`
	Trigger  tax.Trigger      `json:"trigger"`
	Variable string           `json:"variable,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Request  tax.Request      `json:"request"`
}

// DecisionResult is the flow after a step. Request carries the overrides
// and pension adjustment now in force.
type DecisionResult struct {
	Session    string         `json:"session_id"`
	State      tax.State      `json:"state"`
	Transition tax.Transition `json:"transition"`
	Request    tax.Request    `json:"request"`
	Pension    tax.Pension    `json:"pension"`
	Result     *tax.Result    `json:"result,omitempty"`
}

type guarded struct{ s *Service }

func (g guarded) Recalculate(ctx context.Context, req tax.Request) (*tax.Result, error) {
	return g.s.recalculate(ctx, req)
}

// Decide applies one trigger to the flow restored from d. An empty state
// starts a new flow. The result always carries the variables for the new
// state. The transition, and the manual inputs it changed relative to the
// incoming request, are written to the audit log.
func (s *Service) Decide(ctx context.Context, d Decision) (*DecisionResult, error) {
	state := d.State
	if state == "" {
		state = tax.StatePending
	}
	session := d.Session
	if session == "" {
		session = s.newID()
	}

	rates := s.catalog.Rates()
	pension := tax.PensionCheck(d.Request.CurrentAccounts, tax.PensionRate(rates, d.Request.FiscalYear))
	flow, err := tax.RestoreFlow(guarded{s}, d.Request, pension, state)
	if err != nil {
		return nil, err
	}

	if err := flow.Fire(ctx, d.Trigger, d.Variable, d.Amount); err != nil {
		result := "error"
		if errors.Is(err, tax.ErrInvalidTransition) {
			result = "rejected"
		}
		decisionsTotal.WithLabelValues(string(d.Trigger), result).Inc()
		return nil, err
	}
	decisionsTotal.WithLabelValues(string(d.Trigger), "ok").Inc()

	history := flow.History()
	out := &DecisionResult{
		Session:    session,
		State:      flow.State(),
		Transition: history[len(history)-1],
		Request:    flow.Request(),
		Pension:    pension,
		Result:     flow.Result(),
	}

	// The request carries every input in force; only what this step changed
	// goes to the audit log.
	entries := append(flow.AuditEntries(), tax.ChangedInputs(d.Request, out.Request)...)
	if out.Result == nil {
		res, err := s.recalculate(ctx, out.Request)
		if err != nil {
			return nil, err
		}
		out.Result = res
	}
	s.record(session, entries)

	s.logger.Info("tax decision",
		zap.String("op", "report.Decide"),
		zap.String("session", session),
		zap.String("trigger", string(d.Trigger)),
		zap.String("from", string(out.Transition.From)),
		zap.String("to", string(out.State)))
	return out, nil
}
