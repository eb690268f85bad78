// Package rules defines the network-access rule model and the pure
// validation functions over it. Everything in this package is free of
// I/O and shared state; callers may invoke it from any goroutine.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action is the verdict a rule applies to matching traffic.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// ParseAction parses a case-insensitive action token.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionAllow:
		return ActionAllow, nil
	case ActionDeny:
		return ActionDeny, nil
	}
	return "", fmt.Errorf("invalid action: %q (valid: allow, deny)", s)
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionAllow, ActionDeny:
		return true
	}
	return false
}

// Protocol selects which traffic a rule matches at L4.
type Protocol string

const (
	ProtocolTCP  Protocol = "tcp"
	ProtocolUDP  Protocol = "udp"
	ProtocolICMP Protocol = "icmp"
	ProtocolAll  Protocol = "all"
)

// ParseProtocol parses a case-insensitive protocol token.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case ProtocolTCP:
		return ProtocolTCP, nil
	case ProtocolUDP:
		return ProtocolUDP, nil
	case ProtocolICMP:
		return ProtocolICMP, nil
	case ProtocolAll:
		return ProtocolAll, nil
	}
	return "", fmt.Errorf("invalid protocol: %q (valid: tcp, udp, icmp, all)", s)
}

// Valid reports whether p is a known protocol.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolTCP, ProtocolUDP, ProtocolICMP, ProtocolAll:
		return true
	}
	return false
}

// UsesPorts reports whether port specifications are meaningful for p.
// ICMP has no ports; "all" matches any protocol so a port constraint
// would silently exclude ICMP traffic and is therefore not emitted.
func (p Protocol) UsesPorts() bool {
	switch p {
	case ProtocolTCP, ProtocolUDP:
		return true
	case ProtocolICMP, ProtocolAll:
		return false
	}
	return false
}

// Rule is a single network-access rule. Address and port fields hold
// specification strings (see IsValidAddress / IsValidPort); a persisted
// Rule always carries specs that pass those matchers.
type Rule struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Action             Action    `json:"action"`
	Protocol           Protocol  `json:"protocol"`
	SourceAddress      string    `json:"sourceAddress"`
	DestinationAddress string    `json:"destinationAddress"`
	SourcePort         string    `json:"sourcePort,omitempty"`
	DestinationPort    string    `json:"destinationPort,omitempty"`
	Priority           int       `json:"priority"`
	Enabled            bool      `json:"enabled"`
	Description        string    `json:"description,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// NewRuleID returns a fresh rule identifier. IDs are regenerated on
// import, so only uniqueness within the working collection matters.
func NewRuleID() string {
	return uuid.NewString()
}

// IsWildcard reports whether spec means "match everything".
func IsWildcard(spec string) bool {
	return spec == "*" || strings.EqualFold(spec, "any")
}
