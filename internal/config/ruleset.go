// Package config loads and saves declarative rule files in HCL.
//
// A rule file is the at-rest form of a rule collection:
//
//	rule "allow-web" {
//	  action      = "allow"
//	  protocol    = "tcp"
//	  source      = "*"
//	  destination = "10.0.0.5"
//	  dest_port   = "80,443"
//	  priority    = 10
//	}
package config

import (
	"fmt"
	"strings"

	"grimm.is/stockade/internal/clock"
	"grimm.is/stockade/internal/rules"
)

// RuleFile is the decoded form of an HCL rule file.
type RuleFile struct {
	Rules []RuleBlock `hcl:"rule,block"`
}

// RuleBlock is one rule block. Field strings stay raw here; they are
// validated when the file is materialized into rules.
type RuleBlock struct {
	Name        string `hcl:"name,label"`
	Action      string `hcl:"action"`
	Protocol    string `hcl:"protocol"`
	Source      string `hcl:"source"`
	Destination string `hcl:"destination"`
	SourcePort  string `hcl:"source_port,optional"`
	DestPort    string `hcl:"dest_port,optional"`
	Priority    int    `hcl:"priority,optional"`
	Disabled    bool   `hcl:"disabled,optional"`
	Description string `hcl:"description,optional"`
}

// ValidationError is a rule-file validation failure tied to a block.
type ValidationError struct {
	Rule    string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rule %q: %s: %s", e.Rule, e.Field, e.Message)
}

// ValidationErrors is a collection of rule-file validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Materialize validates every block and converts the file into a rule
// collection in file order. All failures across all blocks are
// collected before returning, so the operator sees everything at once.
func (rf *RuleFile) Materialize(clk clock.Clock) ([]rules.Rule, error) {
	if clk == nil {
		clk = &clock.RealClock{}
	}

	var errs ValidationErrors
	out := make([]rules.Rule, 0, len(rf.Rules))

	for _, block := range rf.Rules {
		action, err := rules.ParseAction(block.Action)
		if err != nil {
			errs = append(errs, ValidationError{Rule: block.Name, Field: "action", Message: err.Error()})
		}
		proto, err := rules.ParseProtocol(block.Protocol)
		if err != nil {
			errs = append(errs, ValidationError{Rule: block.Name, Field: "protocol", Message: err.Error()})
		}

		form := rules.RuleForm{
			Name:               block.Name,
			Action:             action,
			Protocol:           proto,
			SourceAddress:      block.Source,
			DestinationAddress: block.Destination,
			SourcePort:         block.SourcePort,
			DestinationPort:    block.DestPort,
			Priority:           block.Priority,
			Enabled:            !block.Disabled,
			Description:        block.Description,
		}
		for _, fe := range rules.ValidateForm(form) {
			errs = append(errs, ValidationError{Rule: block.Name, Field: fe.Field, Message: fe.Message})
		}

		now := clk.Now()
		out = append(out, rules.Rule{
			ID:                 rules.NewRuleID(),
			Name:               block.Name,
			Action:             action,
			Protocol:           proto,
			SourceAddress:      block.Source,
			DestinationAddress: block.Destination,
			SourcePort:         block.SourcePort,
			DestinationPort:    block.DestPort,
			Priority:           block.Priority,
			Enabled:            !block.Disabled,
			Description:        block.Description,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return out, nil
}

// BlocksFromRules converts a rule collection back into file blocks,
// dropping the runtime-only fields (id, timestamps).
func BlocksFromRules(rs []rules.Rule) []RuleBlock {
	blocks := make([]RuleBlock, 0, len(rs))
	for _, r := range rs {
		blocks = append(blocks, RuleBlock{
			Name:        r.Name,
			Action:      string(r.Action),
			Protocol:    string(r.Protocol),
			Source:      r.SourceAddress,
			Destination: r.DestinationAddress,
			SourcePort:  r.SourcePort,
			DestPort:    r.DestinationPort,
			Priority:    r.Priority,
			Disabled:    !r.Enabled,
			Description: r.Description,
		})
	}
	return blocks
}
