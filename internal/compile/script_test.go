package compile

import (
	"strings"
	"testing"
	"time"

	"grimm.is/stockade/internal/rules"
)

var testTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func enabledRule(name string, priority int) rules.Rule {
	return rules.Rule{
		ID:                 rules.NewRuleID(),
		Name:               name,
		Action:             rules.ActionAllow,
		Protocol:           rules.ProtocolTCP,
		SourceAddress:      "*",
		DestinationAddress: "*",
		Priority:           priority,
		Enabled:            true,
	}
}

// TestRuleDirective tests directive generation for various rule shapes.
func TestRuleDirective(t *testing.T) {
	tests := []struct {
		name string
		rule rules.Rule
		want string
	}{
		{
			name: "Basic TCP Accept",
			rule: rules.Rule{
				Action:             rules.ActionAllow,
				Protocol:           rules.ProtocolTCP,
				SourceAddress:      "*",
				DestinationAddress: "10.0.0.5",
				DestinationPort:    "80",
			},
			want: "iptables -A INPUT -p tcp -d 10.0.0.5 --dport 80 -j ACCEPT",
		},
		{
			name: "Deny All Protocol CIDR Source",
			rule: rules.Rule{
				Action:             rules.ActionDeny,
				Protocol:           rules.ProtocolAll,
				SourceAddress:      "192.168.100.0/24",
				DestinationAddress: "*",
				SourcePort:         "9999", // ignored for protocol all
			},
			want: "iptables -A INPUT -s 192.168.100.0/24 -j DROP",
		},
		{
			name: "Port List Uses Multiport",
			rule: rules.Rule{
				Action:             rules.ActionAllow,
				Protocol:           rules.ProtocolTCP,
				SourceAddress:      "*",
				DestinationAddress: "*",
				DestinationPort:    "80,443,8000-8080",
			},
			want: "iptables -A INPUT -p tcp -m multiport --dports 80,443,8000:8080 -j ACCEPT",
		},
		{
			name: "Port Range",
			rule: rules.Rule{
				Action:             rules.ActionAllow,
				Protocol:           rules.ProtocolUDP,
				SourceAddress:      "*",
				DestinationAddress: "*",
				SourcePort:         "5000-6000",
			},
			want: "iptables -A INPUT -p udp --sport 5000:6000 -j ACCEPT",
		},
		{
			name: "Address Range Uses Iprange",
			rule: rules.Rule{
				Action:             rules.ActionDeny,
				Protocol:           rules.ProtocolTCP,
				SourceAddress:      "10.0.0.1-10.0.0.255",
				DestinationAddress: "*",
			},
			want: "iptables -A INPUT -p tcp -m iprange --src-range 10.0.0.1-10.0.0.255 -j DROP",
		},
		{
			name: "ICMP Ignores Ports",
			rule: rules.Rule{
				Action:             rules.ActionAllow,
				Protocol:           rules.ProtocolICMP,
				SourceAddress:      "10.0.0.0/8",
				DestinationAddress: "*",
				SourcePort:         "22",
				DestinationPort:    "80",
			},
			want: "iptables -A INPUT -p icmp -s 10.0.0.0/8 -j ACCEPT",
		},
		{
			name: "Wildcard ANY Addresses Omitted",
			rule: rules.Rule{
				Action:             rules.ActionDeny,
				Protocol:           rules.ProtocolTCP,
				SourceAddress:      "ANY",
				DestinationAddress: "any",
			},
			want: "iptables -A INPUT -p tcp -j DROP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RuleDirective(tt.rule); got != tt.want {
				t.Errorf("RuleDirective() =\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}
}

func TestScript_EmptyRuleSetStillHasPreamble(t *testing.T) {
	script := Script(nil, testTime)

	for _, want := range []string{
		"#!/bin/sh",
		"# Generated: 2026-03-01T09:30:00Z",
		"# Rules: 0",
		"iptables -F",
		"iptables -X",
		"iptables -P INPUT DROP",
		"iptables -P FORWARD DROP",
		"iptables -P OUTPUT ACCEPT",
		"iptables -A INPUT -i lo -j ACCEPT",
		"iptables -A OUTPUT -o lo -j ACCEPT",
		"--ctstate ESTABLISHED,RELATED -j ACCEPT",
		`# iptables -A INPUT -j LOG --log-prefix "FW_DROP: "`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}

	if strings.Contains(script, "# Rule 1:") {
		t.Error("empty rule set should not emit rule blocks")
	}
}

func TestScript_PriorityOrdering(t *testing.T) {
	five := enabledRule("later", 5)
	two := enabledRule("earlier", 2)

	script := Script([]rules.Rule{five, two}, testTime)

	posEarlier := strings.Index(script, "# Rule 1: earlier")
	posLater := strings.Index(script, "# Rule 2: later")
	if posEarlier == -1 || posLater == -1 {
		t.Fatalf("expected both rule blocks:\n%s", script)
	}
	if posEarlier > posLater {
		t.Error("priority 2 rule should appear before priority 5 rule")
	}
}

func TestScript_StableTieBreak(t *testing.T) {
	first := enabledRule("first-inserted", 5)
	second := enabledRule("second-inserted", 5)

	script := Script([]rules.Rule{first, second}, testTime)

	if !strings.Contains(script, "# Rule 1: first-inserted") ||
		!strings.Contains(script, "# Rule 2: second-inserted") {
		t.Errorf("equal priorities should preserve insertion order:\n%s", script)
	}
}

func TestScript_ExcludesDisabledRules(t *testing.T) {
	on := enabledRule("visible", 1)
	off := enabledRule("hidden", 2)
	off.Enabled = false

	script := Script([]rules.Rule{on, off}, testTime)

	if !strings.Contains(script, "visible") {
		t.Error("enabled rule missing from script")
	}
	if strings.Contains(script, "hidden") {
		t.Error("disabled rule leaked into script")
	}
	if !strings.Contains(script, "# Rules: 1") {
		t.Error("rule count should only include enabled rules")
	}
}

func TestScript_DenyAllScenario(t *testing.T) {
	r := rules.Rule{
		Name:               "block-guest-net",
		Action:             rules.ActionDeny,
		Protocol:           rules.ProtocolAll,
		SourceAddress:      "192.168.100.0/24",
		DestinationAddress: "*",
		SourcePort:         "1234",
		DestinationPort:    "80",
		Priority:           3,
		Enabled:            true,
	}

	script := Script([]rules.Rule{r}, testTime)

	directive := ""
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(line, "iptables -A INPUT") && strings.Contains(line, "192.168.100.0/24") {
			directive = line
			break
		}
	}
	if directive == "" {
		t.Fatalf("no directive for rule found:\n%s", script)
	}

	if !strings.Contains(directive, "-s 192.168.100.0/24") {
		t.Error("missing source clause")
	}
	if strings.Contains(directive, "-p ") {
		t.Error("protocol all should omit the protocol clause")
	}
	if strings.Contains(directive, "-d ") {
		t.Error("wildcard destination should omit the destination clause")
	}
	if strings.Contains(directive, "port") {
		t.Error("protocol all should omit port clauses regardless of field content")
	}
	if !strings.HasSuffix(directive, "-j DROP") {
		t.Error("deny action should terminate with a drop clause")
	}
}

func TestScript_DescriptionEmitted(t *testing.T) {
	r := enabledRule("documented", 1)
	r.Description = "allow web traffic to the DMZ"

	script := Script([]rules.Rule{r}, testTime)
	if !strings.Contains(script, "# allow web traffic to the DMZ") {
		t.Error("description comment missing")
	}
}

func TestScript_DeterministicForFixedClock(t *testing.T) {
	rs := []rules.Rule{enabledRule("a", 2), enabledRule("b", 1)}

	first := Script(rs, testTime)
	second := Script(rs, testTime)
	if first != second {
		t.Error("compilation is not deterministic for fixed input and clock")
	}
}
