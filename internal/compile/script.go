// Package compile turns an ordered rule collection into an executable
// packet-filter script. Compilation is a pure function of the input
// rules and the generation time; it performs no I/O.
package compile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"grimm.is/stockade/internal/rules"
)

// ScriptBuilder accumulates directive and comment lines for the
// generated script.
type ScriptBuilder struct {
	lines []string
}

// NewScriptBuilder creates an empty script builder.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{lines: make([]string, 0, 64)}
}

// AddLine adds a raw line to the script.
func (b *ScriptBuilder) AddLine(line string) {
	b.lines = append(b.lines, line)
}

// AddComment adds a comment line.
func (b *ScriptBuilder) AddComment(format string, args ...any) {
	b.AddLine("# " + fmt.Sprintf(format, args...))
}

// AddBlank adds an empty separator line.
func (b *ScriptBuilder) AddBlank() {
	b.AddLine("")
}

// Build returns the complete script as a string.
func (b *ScriptBuilder) Build() string {
	return strings.Join(b.lines, "\n") + "\n"
}

// String returns the script for debugging.
func (b *ScriptBuilder) String() string {
	return b.Build()
}

// Script compiles the rule collection into an iptables shell script.
// Disabled rules are skipped; the survivors are emitted in ascending
// priority order with ties broken by original position (stable sort).
// The preamble and trailer are constant, so for a fixed clock the
// output is fully reproducible.
func Script(rs []rules.Rule, now time.Time) string {
	enabled := make([]rules.Rule, 0, len(rs))
	for _, r := range rs {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})

	sb := NewScriptBuilder()
	sb.AddLine("#!/bin/sh")
	sb.AddComment("Firewall script generated by stockade")
	sb.AddComment("Generated: %s", now.UTC().Format(time.RFC3339))
	// The header counts the rules actually emitted below, not the
	// collection total; disabled rules never reach the script.
	sb.AddComment("Rules: %d", len(enabled))
	sb.AddBlank()

	sb.AddComment("Flush existing rules")
	sb.AddLine("iptables -F")
	sb.AddLine("iptables -X")
	sb.AddBlank()

	sb.AddComment("Default policies: drop inbound and forwarded, allow outbound")
	sb.AddLine("iptables -P INPUT DROP")
	sb.AddLine("iptables -P FORWARD DROP")
	sb.AddLine("iptables -P OUTPUT ACCEPT")
	sb.AddBlank()

	sb.AddComment("Allow loopback")
	sb.AddLine("iptables -A INPUT -i lo -j ACCEPT")
	sb.AddLine("iptables -A OUTPUT -o lo -j ACCEPT")
	sb.AddBlank()

	sb.AddComment("Allow established and related connections")
	sb.AddLine("iptables -A INPUT -m conntrack --ctstate ESTABLISHED,RELATED -j ACCEPT")

	for i, r := range enabled {
		sb.AddBlank()
		sb.AddComment("Rule %d: %s", i+1, r.Name)
		if r.Description != "" {
			sb.AddComment("%s", r.Description)
		}
		sb.AddLine(RuleDirective(r))
	}

	sb.AddBlank()
	sb.AddComment("Log dropped packets (uncomment to enable)")
	sb.AddLine(`# iptables -A INPUT -j LOG --log-prefix "FW_DROP: " --log-level 4`)

	return sb.Build()
}

// RuleDirective converts a single rule to its iptables directive line.
// Exported so callers can show the generated syntax for one rule.
func RuleDirective(r rules.Rule) string {
	parts := []string{"iptables", "-A", "INPUT"}

	// Protocol match. "all" matches everything, so no clause is emitted.
	switch r.Protocol {
	case rules.ProtocolTCP, rules.ProtocolUDP, rules.ProtocolICMP:
		parts = append(parts, "-p", string(r.Protocol))
	case rules.ProtocolAll:
	}

	if !rules.IsWildcard(r.SourceAddress) {
		parts = append(parts, addressClause(r.SourceAddress, true)...)
	}
	if !rules.IsWildcard(r.DestinationAddress) {
		parts = append(parts, addressClause(r.DestinationAddress, false)...)
	}

	// Port clauses are only meaningful for tcp/udp.
	if r.Protocol.UsesPorts() {
		if r.SourcePort != "" && !rules.IsWildcard(r.SourcePort) {
			parts = append(parts, portClause(r.SourcePort, true)...)
		}
		if r.DestinationPort != "" && !rules.IsWildcard(r.DestinationPort) {
			parts = append(parts, portClause(r.DestinationPort, false)...)
		}
	}

	switch r.Action {
	case rules.ActionAllow:
		parts = append(parts, "-j", "ACCEPT")
	case rules.ActionDeny:
		parts = append(parts, "-j", "DROP")
	}

	return strings.Join(parts, " ")
}

// addressClause renders a source or destination address match.
// Single addresses and CIDR blocks use -s/-d directly; dash ranges
// need the iprange match extension.
func addressClause(spec string, source bool) []string {
	if strings.Contains(spec, "-") {
		if source {
			return []string{"-m", "iprange", "--src-range", spec}
		}
		return []string{"-m", "iprange", "--dst-range", spec}
	}
	if source {
		return []string{"-s", spec}
	}
	return []string{"-d", spec}
}

// portClause renders a source or destination port match. Lists go
// through the multiport extension; iptables writes ranges as a:b.
func portClause(spec string, source bool) []string {
	normalized := strings.ReplaceAll(strings.ReplaceAll(spec, " ", ""), "-", ":")
	if strings.Contains(spec, ",") {
		if source {
			return []string{"-m", "multiport", "--sports", normalized}
		}
		return []string{"-m", "multiport", "--dports", normalized}
	}
	if source {
		return []string{"--sport", normalized}
	}
	return []string{"--dport", normalized}
}
