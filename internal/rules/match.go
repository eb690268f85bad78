package rules

import (
	"strconv"
	"strings"
)

// IsValidAddress reports whether spec is a well-formed address
// specification: wildcard (* / any), a single IPv4 address, a CIDR
// block with prefix 0-32, or an inclusive dash range whose start does
// not exceed its end. Validation is purely structural; no reachability
// or network-class checks.
func IsValidAddress(spec string) bool {
	if IsWildcard(spec) {
		return true
	}
	if strings.Contains(spec, "/") {
		return isValidCIDR(spec)
	}
	if strings.Contains(spec, "-") {
		return isValidAddressRange(spec)
	}
	return isValidIPv4(spec)
}

// isValidIPv4 checks four dot-separated decimal octets in [0,255].
// Leading zeros are tolerated (decimal parse), anything non-numeric
// is not.
func isValidIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		n, ok := parseDecimal(part)
		if !ok || n > 255 {
			return false
		}
	}
	return true
}

func isValidCIDR(s string) bool {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return false
	}
	if !isValidIPv4(parts[0]) {
		return false
	}
	prefix, ok := parseDecimal(parts[1])
	return ok && prefix <= 32
}

// isValidAddressRange validates "start-end". Both operands must be
// plain IPv4 addresses (no nested CIDR/range) and the range must be
// well-ordered: the compiled iprange clause assumes start <= end.
func isValidAddressRange(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return false
	}
	if !isValidIPv4(parts[0]) || !isValidIPv4(parts[1]) {
		return false
	}
	return ipv4Value(parts[0]) <= ipv4Value(parts[1])
}

// ipv4Value converts a dotted quad (already validated) to its numeric
// value for ordering comparisons.
func ipv4Value(s string) uint32 {
	var v uint32
	for _, part := range strings.Split(s, ".") {
		n, _ := parseDecimal(part)
		v = v<<8 | uint32(n)
	}
	return v
}

// IsValidPort reports whether spec is a well-formed port specification
// for the given protocol: wildcard, a single port, a dash range, or a
// comma-separated list of those. Ports are meaningless for ICMP, so
// any spec is accepted there.
func IsValidPort(spec string, proto Protocol) bool {
	if IsWildcard(spec) {
		return true
	}
	if proto == ProtocolICMP {
		return true
	}
	if strings.Contains(spec, ",") {
		for _, token := range strings.Split(spec, ",") {
			if !isValidPortToken(strings.TrimSpace(token)) {
				return false
			}
		}
		return true
	}
	return isValidPortToken(spec)
}

// isValidPortToken validates a single list element: wildcard, range,
// or single port. List tokens cannot themselves contain commas.
func isValidPortToken(token string) bool {
	if IsWildcard(token) {
		return true
	}
	if strings.Contains(token, "-") {
		parts := strings.Split(token, "-")
		if len(parts) != 2 {
			return false
		}
		start, okStart := parsePort(parts[0])
		end, okEnd := parsePort(parts[1])
		return okStart && okEnd && start <= end
	}
	_, ok := parsePort(token)
	return ok
}

func parsePort(s string) (int, bool) {
	n, ok := parseDecimal(s)
	if !ok || n < 1 || n > 65535 {
		return 0, false
	}
	return n, true
}

// parseDecimal parses a non-empty all-digit string. Leading zeros are
// fine; signs, spaces, and anything non-numeric are not.
func parseDecimal(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
