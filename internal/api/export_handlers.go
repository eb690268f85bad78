package api

import (
	"errors"
	"io"
	"net/http"

	"grimm.is/stockade/internal/codec"
	"grimm.is/stockade/internal/compile"
	"grimm.is/stockade/internal/metrics"
)

// importResponse reports the outcome of an import so the caller can
// distinguish "0 accepted of N" from a partial or full import.
type importResponse struct {
	Accepted int      `json:"accepted"`
	Total    int      `json:"total"`
	Skipped  []string `json:"skipped,omitempty"`
}

func (s *Server) handleExportScript(w http.ResponseWriter, r *http.Request) {
	script := compile.Script(s.store.List(), s.clk.Now())
	metrics.Get().CompilesTotal.Inc()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="firewall.sh"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, script)
}

func (s *Server) handleExportRules(w http.ResponseWriter, r *http.Request) {
	data, err := codec.Encode(s.store.List(), s.clk.Now())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to encode rule set", err.Error())
		return
	}
	metrics.Get().ExportsTotal.Inc()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="rules.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read request body", err.Error())
		return
	}

	result, err := codec.Decode(body)
	if err != nil {
		var fmtErr *codec.FormatError
		if errors.As(err, &fmtErr) {
			WriteError(w, http.StatusBadRequest, "invalid rule set document", fmtErr.Reason)
			return
		}
		WriteError(w, http.StatusInternalServerError, "import failed", err.Error())
		return
	}

	if _, err := s.store.Merge(result.Rules); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to store imported rules", err.Error())
		return
	}

	m := metrics.Get()
	m.ImportRecords.WithLabelValues("accepted").Add(float64(result.Accepted))
	m.ImportRecords.WithLabelValues("skipped").Add(float64(len(result.Skipped)))

	s.logger.Info("rule set imported",
		"accepted", result.Accepted,
		"total", result.Total,
		"skipped", len(result.Skipped),
	)

	WriteJSON(w, http.StatusOK, importResponse{
		Accepted: result.Accepted,
		Total:    result.Total,
		Skipped:  result.Skipped,
	})
}
