// Package codec serializes rule collections to and from the portable
// exchange document used for export and import.
//
// The document is a JSON object carrying a format version, an export
// timestamp, a record count, and the rules themselves with timestamps
// rendered as RFC 3339 text. Decode must survive adversarial input: it
// never panics and always returns either a structured *FormatError or
// a (possibly partial) accepted set.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"grimm.is/stockade/internal/rules"
)

// FormatVersion tags documents produced by Encode.
const FormatVersion = "1.0"

// FormatError reports a malformed exchange document: not JSON, not a
// list, or the wrong top-level shape. Per-record problems are not
// FormatErrors; they surface as skipped records in the DecodeResult.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid rule set document: " + e.Reason
}

// Document is the wire form of an exported rule collection.
type Document struct {
	Version    string       `json:"version"`
	ExportDate string       `json:"exportDate"`
	TotalRules int          `json:"totalRules"`
	Rules      []ruleRecord `json:"rules"`
}

// ruleRecord is the wire form of one rule. Timestamps travel as text
// so the document stays readable and diffs cleanly.
type ruleRecord struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Action             string `json:"action"`
	Protocol           string `json:"protocol"`
	SourceAddress      string `json:"sourceAddress"`
	DestinationAddress string `json:"destinationAddress"`
	SourcePort         string `json:"sourcePort,omitempty"`
	DestinationPort    string `json:"destinationPort,omitempty"`
	Priority           int    `json:"priority"`
	Enabled            bool   `json:"enabled"`
	Description        string `json:"description,omitempty"`
	CreatedAt          string `json:"createdAt"`
	UpdatedAt          string `json:"updatedAt"`
}

// DecodeResult reports what a decode accepted and what it dropped.
// Accepted < Total means a partial import; the caller decides how to
// surface that (a "0 of N" result is not an error here).
type DecodeResult struct {
	Rules    []rules.Rule
	Accepted int
	Total    int
	Skipped  []string
}

// Encode serializes the rule collection into an exchange document.
func Encode(rs []rules.Rule, now time.Time) ([]byte, error) {
	doc := Document{
		Version:    FormatVersion,
		ExportDate: now.UTC().Format(time.RFC3339),
		TotalRules: len(rs),
		Rules:      make([]ruleRecord, 0, len(rs)),
	}
	for _, r := range rs {
		doc.Rules = append(doc.Rules, ruleRecord{
			ID:                 r.ID,
			Name:               r.Name,
			Action:             string(r.Action),
			Protocol:           string(r.Protocol),
			SourceAddress:      r.SourceAddress,
			DestinationAddress: r.DestinationAddress,
			SourcePort:         r.SourcePort,
			DestinationPort:    r.DestinationPort,
			Priority:           r.Priority,
			Enabled:            r.Enabled,
			Description:        r.Description,
			CreatedAt:          r.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt:          r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses an exchange document. It accepts either the wrapped
// Document form or a bare JSON array of rule records (older exports).
// Records missing id, name, or action are dropped, as are records that
// fail field validation or carry unparsable timestamps; each drop is
// recorded in Skipped and the decode as a whole still succeeds. Every
// accepted rule gets a freshly generated id so imported rules can
// never collide with the existing collection.
func Decode(data []byte) (*DecodeResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &FormatError{Reason: "empty payload"}
	}

	var records []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, &FormatError{Reason: "malformed rule list"}
		}
	case '{':
		var doc struct {
			Rules json.RawMessage `json:"rules"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, &FormatError{Reason: "malformed rule set document"}
		}
		if doc.Rules == nil || bytes.Equal(bytes.TrimSpace(doc.Rules), []byte("null")) {
			return nil, &FormatError{Reason: "document has no rules field"}
		}
		if err := json.Unmarshal(doc.Rules, &records); err != nil {
			return nil, &FormatError{Reason: "rules field is not a list"}
		}
	default:
		return nil, &FormatError{Reason: "payload is neither a rule list nor a rule set document"}
	}

	result := &DecodeResult{Total: len(records)}
	for i, raw := range records {
		rule, reason := decodeRecord(raw)
		if reason != "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("record %d: %s", i+1, reason))
			continue
		}
		result.Rules = append(result.Rules, rule)
		result.Accepted++
	}
	return result, nil
}

// decodeRecord converts one wire record to a Rule, returning a
// non-empty reason when the record must be dropped.
func decodeRecord(raw json.RawMessage) (rules.Rule, string) {
	var rec ruleRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rules.Rule{}, "not a rule object"
	}

	if rec.ID == "" || rec.Name == "" || rec.Action == "" {
		return rules.Rule{}, "missing required field (id, name, or action)"
	}

	action, err := rules.ParseAction(rec.Action)
	if err != nil {
		return rules.Rule{}, err.Error()
	}
	proto, err := rules.ParseProtocol(rec.Protocol)
	if err != nil {
		return rules.Rule{}, err.Error()
	}

	form := rules.RuleForm{
		Name:               rec.Name,
		Action:             action,
		Protocol:           proto,
		SourceAddress:      rec.SourceAddress,
		DestinationAddress: rec.DestinationAddress,
		SourcePort:         rec.SourcePort,
		DestinationPort:    rec.DestinationPort,
	}
	if errs := rules.ValidateForm(form); errs.HasErrors() {
		return rules.Rule{}, errs.Error()
	}

	createdAt, err := parseTimestamp(rec.CreatedAt)
	if err != nil {
		return rules.Rule{}, fmt.Sprintf("unparsable createdAt: %q", rec.CreatedAt)
	}
	updatedAt, err := parseTimestamp(rec.UpdatedAt)
	if err != nil {
		return rules.Rule{}, fmt.Sprintf("unparsable updatedAt: %q", rec.UpdatedAt)
	}

	return rules.Rule{
		ID:                 rules.NewRuleID(), // never trust imported ids
		Name:               rec.Name,
		Action:             action,
		Protocol:           proto,
		SourceAddress:      rec.SourceAddress,
		DestinationAddress: rec.DestinationAddress,
		SourcePort:         rec.SourcePort,
		DestinationPort:    rec.DestinationPort,
		Priority:           rec.Priority,
		Enabled:            rec.Enabled,
		Description:        rec.Description,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, ""
}

// parseTimestamp parses RFC 3339 text. Encode writes fractional
// seconds (RFC3339Nano) so wall-clock stamps survive a round trip;
// the parser accepts them with or without.
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
