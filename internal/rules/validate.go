package rules

import (
	"fmt"
	"strings"
)

// FieldError is a user-correctable validation failure scoped to a
// single form field. It is returned as data, never raised: malformed
// input is the expected common case during interactive editing.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is an ordered collection of field validation errors.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e FieldErrors) HasErrors() bool {
	return len(e) > 0
}

// RuleForm carries the raw field strings collected from a caller
// (form UI, API request, rule file) before a Rule is materialized.
type RuleForm struct {
	Name               string   `json:"name"`
	Action             Action   `json:"action"`
	Protocol           Protocol `json:"protocol"`
	SourceAddress      string   `json:"sourceAddress"`
	DestinationAddress string   `json:"destinationAddress"`
	SourcePort         string   `json:"sourcePort"`
	DestinationPort    string   `json:"destinationPort"`
	Priority           int      `json:"priority"`
	Enabled            bool     `json:"enabled"`
	Description        string   `json:"description"`
}

// Validation messages surfaced to the caller, keyed by field. The
// texts are part of the external contract and must not drift.
const (
	msgNameRequired    = "Rule name is required"
	msgSourceRequired  = "Source IP is required"
	msgDestRequired    = "Destination IP is required"
	msgInvalidAddress  = "Invalid IP address format"
	msgInvalidPortSpec = "Invalid port format"
)

// ValidateForm runs every check and collects all failures; it never
// short-circuits, so the caller can surface every problem at once.
// Errors appear in fixed field order: name, sourceAddress,
// destinationAddress, sourcePort, destinationPort.
func ValidateForm(f RuleForm) FieldErrors {
	var errs FieldErrors

	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: msgNameRequired})
	}

	if f.SourceAddress == "" {
		errs = append(errs, FieldError{Field: "sourceAddress", Message: msgSourceRequired})
	} else if !IsValidAddress(f.SourceAddress) {
		errs = append(errs, FieldError{Field: "sourceAddress", Message: msgInvalidAddress})
	}

	if f.DestinationAddress == "" {
		errs = append(errs, FieldError{Field: "destinationAddress", Message: msgDestRequired})
	} else if !IsValidAddress(f.DestinationAddress) {
		errs = append(errs, FieldError{Field: "destinationAddress", Message: msgInvalidAddress})
	}

	if f.SourcePort != "" && !IsValidPort(f.SourcePort, f.Protocol) {
		errs = append(errs, FieldError{Field: "sourcePort", Message: msgInvalidPortSpec})
	}

	if f.DestinationPort != "" && !IsValidPort(f.DestinationPort, f.Protocol) {
		errs = append(errs, FieldError{Field: "destinationPort", Message: msgInvalidPortSpec})
	}

	return errs
}
