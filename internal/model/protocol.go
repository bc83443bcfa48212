package model

import "strings"

// ProtocolID identifies an external yield venue.
type ProtocolID string

// ProtocolNone marks a ledger that has never been reallocated.
const ProtocolNone ProtocolID = ""

// Venues supported out of the box.
const (
	ProtocolRaydium ProtocolID = "raydium"
	ProtocolSerum   ProtocolID = "serum"
	ProtocolSolend  ProtocolID = "solend"
)

// KnownProtocols lists the built-in venues in a stable order.
var KnownProtocols = []ProtocolID{ProtocolRaydium, ProtocolSerum, ProtocolSolend}

// ParseProtocol normalizes a user supplied protocol identifier.
func ParseProtocol(s string) ProtocolID {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "none" {
		return ProtocolNone
	}
	return ProtocolID(s)
}

func (p ProtocolID) IsNone() bool { return p == ProtocolNone }

func (p ProtocolID) String() string {
	if p.IsNone() {
		return "none"
	}
	return string(p)
}
