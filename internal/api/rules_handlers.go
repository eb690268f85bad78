package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"grimm.is/stockade/internal/rules"
	"grimm.is/stockade/internal/store"
)

// ruleRequest is the JSON body for create and update. Action and
// protocol arrive as raw strings and are parsed into their enums
// before the form is validated.
type ruleRequest struct {
	Name               string `json:"name"`
	Action             string `json:"action"`
	Protocol           string `json:"protocol"`
	SourceAddress      string `json:"sourceAddress"`
	DestinationAddress string `json:"destinationAddress"`
	SourcePort         string `json:"sourcePort"`
	DestinationPort    string `json:"destinationPort"`
	Priority           int    `json:"priority"`
	Enabled            bool   `json:"enabled"`
	Description        string `json:"description"`
}

// validationResponse is the 422 body: the ordered field-error list the
// form UI renders next to each input.
type validationResponse struct {
	Errors rules.FieldErrors `json:"errors"`
}

// parseRuleForm decodes and enum-parses the request body. Enum
// failures are reported in the same field-error shape as validation
// failures so the client has one error path.
func parseRuleForm(r *http.Request) (rules.RuleForm, rules.FieldErrors, error) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return rules.RuleForm{}, nil, err
	}

	var errs rules.FieldErrors
	action, err := rules.ParseAction(req.Action)
	if err != nil {
		errs = append(errs, rules.FieldError{Field: "action", Message: err.Error()})
	}
	proto, err := rules.ParseProtocol(req.Protocol)
	if err != nil {
		errs = append(errs, rules.FieldError{Field: "protocol", Message: err.Error()})
	}

	form := rules.RuleForm{
		Name:               req.Name,
		Action:             action,
		Protocol:           proto,
		SourceAddress:      req.SourceAddress,
		DestinationAddress: req.DestinationAddress,
		SourcePort:         req.SourcePort,
		DestinationPort:    req.DestinationPort,
		Priority:           req.Priority,
		Enabled:            req.Enabled,
		Description:        req.Description,
	}
	return form, errs, nil
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "rule not found")
		return
	}
	WriteJSON(w, http.StatusOK, rule)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	form, enumErrs, err := parseRuleForm(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if enumErrs.HasErrors() {
		WriteJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: enumErrs})
		return
	}

	rule, err := s.store.Create(form)
	if err != nil {
		var fieldErrs rules.FieldErrors
		if errors.As(err, &fieldErrs) {
			WriteJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: fieldErrs})
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to store rule", err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	form, enumErrs, err := parseRuleForm(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if enumErrs.HasErrors() {
		WriteJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: enumErrs})
		return
	}

	rule, err := s.store.Update(r.PathValue("id"), form)
	if err != nil {
		var fieldErrs rules.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			WriteJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: fieldErrs})
		case errors.Is(err, store.ErrNotFound):
			WriteError(w, http.StatusNotFound, "rule not found")
		default:
			WriteError(w, http.StatusInternalServerError, "failed to store rule", err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusOK, rule)
}

func (s *Server) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.store.Toggle(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "rule not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to store rule", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "rule not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to delete rule", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
