package tax

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidTransition is returned when a trigger is not allowed in the
// flow's current state.
var ErrInvalidTransition = errors.New("invalid transition")

// State is a step of the tax decision flow.
type State string

const (
	StatePending         State = "TAX_PENDING"
	StateApproved        State = "TAX_APPROVED"
	StateUnderReview     State = "TAX_UNDER_REVIEW"
	StatePensionCheck    State = "PENSION_CHECK"
	StatePensionAdjusted State = "PENSION_ADJUSTED"
	StatePensionKept     State = "PENSION_KEPT"
	StatePensionCustom   State = "PENSION_CUSTOM"
	StateFinalChoice     State = "FINAL_TAX_CHOICE"
	StateUseCalculated   State = "USE_CALCULATED"
	StateUseManual       State = "USE_MANUAL"
	StateUseBooked       State = "USE_BOOKED"
)

// ParseState validates a state name.
func ParseState(s string) (State, error) {
	st := State(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown tax state %q", s)
	}
	return st, nil
}

// Trigger moves the flow between states.
type Trigger string

const (
	TriggerApprove       Trigger = "approve"
	TriggerReview        Trigger = "review"
	TriggerCheckPension  Trigger = "check_pension"
	TriggerAdjustPension Trigger = "adjust_pension"
	TriggerKeepPension   Trigger = "keep_pension"
	TriggerCustomPension Trigger = "custom_pension"
	TriggerChooseFinal   Trigger = "choose_final"
	TriggerUseCalculated Trigger = "use_calculated"
	TriggerUseManual     Trigger = "use_manual"
	TriggerUseBooked     Trigger = "use_booked"
	TriggerSetOverride   Trigger = "set_override"
)

// pensionDone and finalDone are the states after a pension or final tax
// decision. They accept the same onward triggers.
var (
	pensionDone = []State{StatePensionAdjusted, StatePensionKept, StatePensionCustom}
	finalDone   = []State{StateUseCalculated, StateUseManual, StateUseBooked}
)

var transitions = map[State]map[Trigger]State{
	StatePending: {
		TriggerApprove: StateApproved,
		TriggerReview:  StateUnderReview,
	},
	StateApproved: {
		TriggerReview: StateUnderReview,
	},
	StateUnderReview: {
		TriggerApprove:      StateApproved,
		TriggerCheckPension: StatePensionCheck,
		TriggerChooseFinal:  StateFinalChoice,
		TriggerSetOverride:  StateUnderReview,
	},
	StatePensionCheck: {
		TriggerAdjustPension: StatePensionAdjusted,
		TriggerKeepPension:   StatePensionKept,
		TriggerCustomPension: StatePensionCustom,
	},
	StateFinalChoice: {
		TriggerUseCalculated: StateUseCalculated,
		TriggerUseManual:     StateUseManual,
		TriggerUseBooked:     StateUseBooked,
	},
}

func init() {
	for _, s := range pensionDone {
		transitions[s] = map[Trigger]State{
			TriggerApprove:      StateApproved,
			TriggerCheckPension: StatePensionCheck,
			TriggerChooseFinal:  StateFinalChoice,
			TriggerSetOverride:  s,
		}
	}
	for _, s := range finalDone {
		transitions[s] = map[Trigger]State{
			TriggerApprove:     StateApproved,
			TriggerChooseFinal: StateFinalChoice,
			TriggerSetOverride: s,
		}
	}
}

// Recalculator recomputes the tax variables for a request.
type Recalculator interface {
	Recalculate(ctx context.Context, req Request) (*Result, error)
}

// Transition is one recorded step of the flow.
type Transition struct {
	From     State            `json:"from"`
	To       State            `json:"to"`
	Trigger  Trigger          `json:"trigger"`
	Variable string           `json:"variable,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

// Flow is the tax decision state machine for one session. It is not safe
// for concurrent use.
type Flow struct {
	recalc     Recalculator
	base       Request
	pension    Pension
	state      State
	overrides  map[string]decimal.Decimal
	adjustment decimal.Decimal
	result     *Result
	history    []Transition
}

// NewFlow starts a flow in TAX_PENDING. base supplies the accounts, fiscal
// year and RR/BR results; its manual amounts and adjustment seed the flow.
func NewFlow(recalc Recalculator, base Request, pension Pension) *Flow {
	f, _ := RestoreFlow(recalc, base, pension, StatePending)
	return f
}

// RestoreFlow resumes a flow in state, for callers that keep the session
// on their side and send it back with every step.
func RestoreFlow(recalc Recalculator, base Request, pension Pension, state State) (*Flow, error) {
	if _, ok := transitions[state]; !ok {
		return nil, fmt.Errorf("unknown tax state %q", state)
	}
	f := &Flow{
		recalc:    recalc,
		base:      base,
		pension:   pension,
		state:     state,
		overrides: make(map[string]decimal.Decimal, len(base.ManualAmounts)),
	}
	for k, v := range base.ManualAmounts {
		f.overrides[k] = v
	}
	if base.PensionAdjustment != nil {
		f.adjustment = *base.PensionAdjustment
	}
	return f, nil
}

// State returns the current state.
func (f *Flow) State() State { return f.state }

// Result returns the latest recalculation, nil before the first one.
func (f *Flow) Result() *Result { return f.result }

// History returns the transitions taken so far.
func (f *Flow) History() []Transition {
	out := make([]Transition, len(f.history))
	copy(out, f.history)
	return out
}

// Pension returns the pension check the flow was started with.
func (f *Flow) Pension() Pension { return f.pension }

// Adjustment returns the pension adjustment in force.
func (f *Flow) Adjustment() decimal.Decimal { return f.adjustment }

// Request returns the recalculation request for the flow's current
// overrides and adjustment.
func (f *Flow) Request() Request {
	req := f.base
	req.ManualAmounts = make(map[string]decimal.Decimal, len(f.overrides))
	for k, v := range f.overrides {
		req.ManualAmounts[k] = v
	}
	req.PensionAdjustment = nil
	if !f.adjustment.IsZero() {
		adj := f.adjustment
		req.PensionAdjustment = &adj
	}
	return req
}

// Approve accepts the tax calculation as it stands.
func (f *Flow) Approve(ctx context.Context) error {
	return f.fire(ctx, Transition{Trigger: TriggerApprove}, nil)
}

// Review opens the calculation for changes and computes the baseline.
func (f *Flow) Review(ctx context.Context) error {
	return f.fire(ctx, Transition{Trigger: TriggerReview}, func() {})
}

// CheckPension moves to the pension decision.
func (f *Flow) CheckPension(ctx context.Context) error {
	return f.fire(ctx, Transition{Trigger: TriggerCheckPension}, nil)
}

// AdjustPension books the pension discrepancy as the adjustment.
func (f *Flow) AdjustPension(ctx context.Context) error {
	amt := f.pension.Discrepancy()
	return f.fire(ctx, Transition{Trigger: TriggerAdjustPension, Variable: PensionVariable, Amount: &amt}, func() {
		f.adjustment = amt
	})
}

// KeepPension keeps the booked pension tax and drops any adjustment.
func (f *Flow) KeepPension(ctx context.Context) error {
	return f.fire(ctx, Transition{Trigger: TriggerKeepPension, Variable: PensionVariable}, func() {
		f.adjustment = decimal.Zero
	})
}

// CustomPension uses amount as the adjustment.
func (f *Flow) CustomPension(ctx context.Context, amount decimal.Decimal) error {
	return f.fire(ctx, Transition{Trigger: TriggerCustomPension, Variable: PensionVariable, Amount: &amount}, func() {
		f.adjustment = amount
	})
}

// ChooseFinal moves to the final tax decision.
func (f *Flow) ChooseFinal(ctx context.Context) error {
	return f.fire(ctx, Transition{Trigger: TriggerChooseFinal}, nil)
}

// UseCalculated drops any override of the calculated tax.
func (f *Flow) UseCalculated(ctx context.Context) error {
	return f.fire(ctx, Transition{Trigger: TriggerUseCalculated, Variable: CalculatedTaxVariable}, func() {
		delete(f.overrides, CalculatedTaxVariable)
	})
}

// UseManual sets the calculated tax to amount.
func (f *Flow) UseManual(ctx context.Context, amount decimal.Decimal) error {
	return f.fire(ctx, Transition{Trigger: TriggerUseManual, Variable: CalculatedTaxVariable, Amount: &amount}, func() {
		f.overrides[CalculatedTaxVariable] = amount
	})
}

// UseBooked sets the calculated tax to the tax booked in the income statement.
func (f *Flow) UseBooked(ctx context.Context) error {
	if _, ok := transitions[f.state][TriggerUseBooked]; !ok {
		return f.invalid(TriggerUseBooked)
	}
	booked, err := f.booked(ctx)
	if err != nil {
		return err
	}
	return f.fire(ctx, Transition{Trigger: TriggerUseBooked, Variable: CalculatedTaxVariable, Amount: &booked}, func() {
		f.overrides[CalculatedTaxVariable] = booked
	})
}

// SetOverride replaces one variable with amount.
func (f *Flow) SetOverride(ctx context.Context, variable string, amount decimal.Decimal) error {
	return f.fire(ctx, Transition{Trigger: TriggerSetOverride, Variable: variable, Amount: &amount}, func() {
		f.overrides[variable] = amount
	})
}

// Fire dispatches a trigger by name. Amount is required by the triggers that
// take one and variable by set_override.
func (f *Flow) Fire(ctx context.Context, trigger Trigger, variable string, amount *decimal.Decimal) error {
	need := func() (decimal.Decimal, error) {
		if amount == nil {
			return decimal.Zero, fmt.Errorf("%s requires an amount", trigger)
		}
		return *amount, nil
	}
	switch trigger {
	case TriggerApprove:
		return f.Approve(ctx)
	case TriggerReview:
		return f.Review(ctx)
	case TriggerCheckPension:
		return f.CheckPension(ctx)
	case TriggerAdjustPension:
		return f.AdjustPension(ctx)
	case TriggerKeepPension:
		return f.KeepPension(ctx)
	case TriggerCustomPension:
		amt, err := need()
		if err != nil {
			return err
		}
		return f.CustomPension(ctx, amt)
	case TriggerChooseFinal:
		return f.ChooseFinal(ctx)
	case TriggerUseCalculated:
		return f.UseCalculated(ctx)
	case TriggerUseManual:
		amt, err := need()
		if err != nil {
			return err
		}
		return f.UseManual(ctx, amt)
	case TriggerUseBooked:
		return f.UseBooked(ctx)
	case TriggerSetOverride:
		if variable == "" {
			return fmt.Errorf("%s requires a variable", trigger)
		}
		amt, err := need()
		if err != nil {
			return err
		}
		return f.SetOverride(ctx, variable, amt)
	}
	return fmt.Errorf("unknown trigger %q", trigger)
}

func (f *Flow) invalid(t Trigger) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, t, f.state)
}

// fire moves to the trigger's target state. A non-nil change is applied and
// followed by a recalculation; if that fails the flow is left untouched.
func (f *Flow) fire(ctx context.Context, t Transition, change func()) error {
	next, ok := transitions[f.state][t.Trigger]
	if !ok {
		return f.invalid(t.Trigger)
	}

	if change != nil {
		savedOverrides := make(map[string]decimal.Decimal, len(f.overrides))
		for k, v := range f.overrides {
			savedOverrides[k] = v
		}
		savedAdjustment := f.adjustment

		change()
		res, err := f.recalc.Recalculate(ctx, f.Request())
		if err != nil {
			f.overrides, f.adjustment = savedOverrides, savedAdjustment
			return fmt.Errorf("recalculating after %s: %w", t.Trigger, err)
		}
		f.result = res
	}

	t.From, t.To = f.state, next
	f.state = next
	f.history = append(f.history, t)
	return nil
}

func (f *Flow) booked(ctx context.Context) (decimal.Decimal, error) {
	if f.result == nil {
		res, err := f.recalc.Recalculate(ctx, f.Request())
		if err != nil {
			return decimal.Zero, fmt.Errorf("recalculating booked tax: %w", err)
		}
		f.result = res
	}
	amt := f.result.Amount(BookedTaxVariable)
	if !amt.Valid {
		return decimal.Zero, nil
	}
	return amt.Decimal, nil
}

// AuditEntries returns the flow's transitions as audit entries.
func (f *Flow) AuditEntries() []AuditEntry {
	out := make([]AuditEntry, 0, len(f.history))
	for _, t := range f.history {
		e := AuditEntry{Kind: AuditTransition, Variable: t.Variable, Detail: fmt.Sprintf("%s %s -> %s", t.Trigger, t.From, t.To)}
		if t.Amount != nil {
			e.Amount = *t.Amount
		}
		out = append(out, e)
	}
	return out
}
