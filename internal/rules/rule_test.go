package rules

import "testing"

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"allow", ActionAllow, false},
		{"ALLOW", ActionAllow, false},
		{" deny ", ActionDeny, false},
		{"reject", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAction(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    Protocol
		wantErr bool
	}{
		{"tcp", ProtocolTCP, false},
		{"UDP", ProtocolUDP, false},
		{"Icmp", ProtocolICMP, false},
		{"all", ProtocolAll, false},
		{"gre", "", true},
	}

	for _, tt := range tests {
		got, err := ParseProtocol(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProtocol(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProtocol(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestProtocolUsesPorts(t *testing.T) {
	if !ProtocolTCP.UsesPorts() || !ProtocolUDP.UsesPorts() {
		t.Error("tcp/udp should use ports")
	}
	if ProtocolICMP.UsesPorts() || ProtocolAll.UsesPorts() {
		t.Error("icmp/all should not use ports")
	}
}

func TestNewRuleID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewRuleID()
		if id == "" {
			t.Fatal("empty rule ID")
		}
		if seen[id] {
			t.Fatalf("duplicate rule ID: %s", id)
		}
		seen[id] = true
	}
}

func TestIsWildcard(t *testing.T) {
	for _, s := range []string{"*", "any", "ANY", "Any"} {
		if !IsWildcard(s) {
			t.Errorf("IsWildcard(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "10.0.0.1", "anything", "* "} {
		if IsWildcard(s) {
			t.Errorf("IsWildcard(%q) = true, want false", s)
		}
	}
}
