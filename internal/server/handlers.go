package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sabrinalaillita/fpg-strl/internal/analysis"
	"github.com/sabrinalaillita/fpg-strl/internal/mining"
	"github.com/sabrinalaillita/fpg-strl/internal/report"
)

// errBadRequest marks malformed form input.
var errBadRequest = errors.New("server: bad request")

// analyzeResponse is the body of POST /api/analyze.
type analyzeResponse struct {
	Summary *analysis.Summary `json:"summary"`
	Result  *report.Run       `json:"result"`
	Saved   bool              `json:"saved"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyze mines an uploaded export. The upload is held in memory only.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opt.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.fail(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.opt.MaxUploadBytes))
			return
		}
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	params, opt, save, err := s.formParams(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	name := filepath.Base(header.Filename)
	ds, err := analysis.ReadTransactions(name, data, opt)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	summary := analysis.Summarize(ds, 10)
	if len(ds.Transactions) == 0 {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: no transactions left after cleaning", mining.ErrInvalidInput))
		return
	}

	ctx := r.Context()
	if s.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opt.Timeout)
		defer cancel()
	}
	res, err := mining.Analyze(ctx, ds.Transactions, params)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	run := report.NewRun(name, params, res)

	// The summary travels once at the top level; only the stored copy embeds it.
	saved := false
	if save && s.opt.RunsDir != "" {
		stored := *run
		stored.Summary = summary
		if _, err := stored.Save(s.opt.RunsDir); err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		saved = true
	}
	s.log.Debug("analysis done", "file", name, "transactions", res.Transactions,
		"itemsets", len(res.Itemsets), "rules", len(res.Rules), "status", res.Status)
	writeJSON(w, http.StatusOK, analyzeResponse{Summary: summary, Result: run, Saved: saved})
}

// formParams reads thresholds and column options from the form, falling
// back to the server defaults.
func (s *Server) formParams(r *http.Request) (mining.Params, analysis.Options, bool, error) {
	p := s.opt.Defaults
	opt := s.opt.Load
	floats := []struct {
		key string
		dst *float64
	}{
		{"min_support", &p.MinSupport},
		{"min_confidence", &p.MinConfidence},
		{"min_lift", &p.MinLift},
	}
	for _, f := range floats {
		if v := strings.TrimSpace(r.FormValue(f.key)); v != "" {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return p, opt, false, fmt.Errorf("%w: %s must be a number, got %q", errBadRequest, f.key, v)
			}
			*f.dst = x
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"max_len", &p.MaxLen},
		{"max_rows", &opt.MaxRows},
		{"sheet_index", &opt.SheetIndex},
	}
	for _, f := range ints {
		if v := strings.TrimSpace(r.FormValue(f.key)); v != "" {
			x, err := strconv.Atoi(v)
			if err != nil {
				return p, opt, false, fmt.Errorf("%w: %s must be an integer, got %q", errBadRequest, f.key, v)
			}
			*f.dst = x
		}
	}
	strs := []struct {
		key string
		dst *string
	}{
		{"transaction_column", &opt.TransactionColumn},
		{"item_column", &opt.ItemColumn},
		{"status_column", &opt.StatusColumn},
		{"quantity_column", &opt.QuantityColumn},
		{"sheet", &opt.SheetName},
	}
	for _, f := range strs {
		if v := strings.TrimSpace(r.FormValue(f.key)); v != "" {
			*f.dst = v
		}
	}
	if v := strings.TrimSpace(r.FormValue("lowercase")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, opt, false, fmt.Errorf("%w: lowercase must be a boolean, got %q", errBadRequest, v)
		}
		opt.Lowercase = b
	}
	save, _ := strconv.ParseBool(r.FormValue("save"))
	return p, opt, save, p.Validate()
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.opt.RunsDir == "" {
		writeJSON(w, http.StatusOK, []report.Summary{})
		return
	}
	list, err := report.List(s.opt.RunsDir)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []report.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) findRun(w http.ResponseWriter, r *http.Request) (*report.Run, bool) {
	if s.opt.RunsDir == "" {
		s.fail(w, r, http.StatusNotFound, report.ErrRunNotFound)
		return nil, false
	}
	run, err := report.Find(s.opt.RunsDir, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return nil, false
	}
	return run, true
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if run, ok := s.findRun(w, r); ok {
		writeJSON(w, http.StatusOK, run)
	}
}

func (s *Server) runCSV(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != report.KindItemsets && kind != report.KindRules {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: %q", report.ErrUnknownKind, kind))
		return
	}
	run, ok := s.findRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", run.Name+"_"+kind+".csv"))
	if err := run.WriteCSV(w, kind); err != nil {
		s.log.Error("write csv", "run", run.ID, "err", err)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		mining.IsInvalidInput(err),
		errors.Is(err, analysis.ErrEmptyTable),
		errors.Is(err, analysis.ErrColumnNotFound),
		errors.Is(err, analysis.ErrSheetNotFound),
		errors.Is(err, analysis.ErrUnreadable),
		errors.Is(err, report.ErrAmbiguousID),
		errors.Is(err, report.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrRunNotFound):
		return http.StatusNotFound
	case mining.IsResourceExhausted(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
