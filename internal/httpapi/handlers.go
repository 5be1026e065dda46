package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/raketrapport/raket/internal/model"
	"github.com/raketrapport/raket/internal/presentation"
	"github.com/raketrapport/raket/internal/report"
	"github.com/raketrapport/raket/internal/tax"
)

// SessionHeader carries the client's session id for the audit log.
const SessionHeader = "X-Session-ID"

type recalculateResponse struct {
	Success  bool                `json:"success"`
	INK2     []model.TaxVariable `json:"ink2_data"`
	Warnings []tax.Warning       `json:"warnings,omitempty"`
}

// recalculateRequest keeps the top level of the request strict while line
// items are decoded leniently: clients send back the rows they rendered,
// display fields included.
type recalculateRequest struct {
	tax.Request
	RRData json.RawMessage `json:"rr_data"`
	BRData json.RawMessage `json:"br_data"`
}

func (req *recalculateRequest) items() error {
	for _, part := range []struct {
		name string
		raw  json.RawMessage
		dst  *[]model.LineItem
	}{
		{"rr_data", req.RRData, &req.Request.RRData},
		{"br_data", req.BRData, &req.Request.BRData},
	} {
		if len(part.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(part.raw, part.dst); err != nil {
			return fmt.Errorf("invalid JSON in %s: %w", part.name, err)
		}
	}
	return nil
}

func (s *Server) recalculate(w http.ResponseWriter, r *http.Request) {
	var body recalculateRequest
	if err := decodeJSON(r, &body); err != nil {
		writeFailure(w, err)
		return
	}
	if err := body.items(); err != nil {
		writeFailure(w, err)
		return
	}
	req := body.Request

	res, err := s.svc.Recalculate(r.Context(), r.Header.Get(SessionHeader), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	toJSON(w, http.StatusOK, recalculateResponse{Success: true, INK2: res.Variables, Warnings: res.Warnings})
}

type presentationView struct {
	RR   []presentation.Row `json:"rr"`
	BR   []presentation.Row `json:"br"`
	INK2 []presentation.Row `json:"ink2"`
}

type reportResponse struct {
	Success bool `json:"success"`
	*report.Report
	Presentation presentationView `json:"presentation"`
}

// buildReport parses a bookkeeping export from the body. The format query
// parameter picks the parser (default se); show_all=true disables zero
// suppression in the presentation rows.
func (s *Server) buildReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "se"
	}
	parser := s.importers.Get(format)
	if parser == nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown input format %q", format))
		return
	}
	showAll := false
	if raw := q.Get("show_all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "show_all must be a boolean")
			return
		}
		showAll = v
	}

	ledger, err := parser.Parse(r.Body)
	if err != nil {
		writeFailure(w, fmt.Errorf("parsing %s export: %w", format, err))
		return
	}
	rep, err := s.svc.Build(r.Context(), ledger)
	if err != nil {
		writeFailure(w, err)
		return
	}

	s.log.Debug("report served",
		zap.String("op", "httpapi.buildReport"),
		zap.String("format", format),
		zap.Int("accounts", len(ledger.Current)))
	toJSON(w, http.StatusOK, reportResponse{
		Success: true,
		Report:  rep,
		Presentation: presentationView{
			RR:   presentation.Filter(rep.RR, showAll),
			BR:   presentation.Filter(rep.BR, showAll),
			INK2: presentation.FilterTax(rep.INK2, showAll),
		},
	})
}

type decisionResponse struct {
	Success bool `json:"success"`
	*report.DecisionResult
}

func (s *Server) taxDecision(w http.ResponseWriter, r *http.Request) {
	var d report.Decision
	if err := decodeJSON(r, &d); err != nil {
		writeFailure(w, err)
		return
	}
	if d.Session == "" {
		d.Session = r.Header.Get(SessionHeader)
	}

	res, err := s.svc.Decide(r.Context(), d)
	if err != nil {
		writeFailure(w, err)
		return
	}
	toJSON(w, http.StatusOK, decisionResponse{Success: true, DecisionResult: res})
}
