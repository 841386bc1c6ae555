// Package params holds the rule-set tags and protocol constants shared by the
// execution core. Gas and size constants are taken from go-ethereum's params
// package so both implementations price the same operations identically.
package params

import (
	"fmt"
	"strings"

	gethparams "github.com/ethereum/go-ethereum/params"
)

// SpecID selects the economic rule set (refund cap, gas schedule, feature
// flags) active for an execution. Later forks compare greater than earlier ones.
type SpecID uint8

const (
	Frontier SpecID = iota
	Homestead
	Tangerine
	SpuriousDragon
	Byzantium
	Petersburg
	Istanbul
	Berlin
	London
	Merge
	Shanghai
	Cancun
	Prague

	Latest = Prague
)

var specNames = [...]string{
	Frontier:       "Frontier",
	Homestead:      "Homestead",
	Tangerine:      "Tangerine",
	SpuriousDragon: "SpuriousDragon",
	Byzantium:      "Byzantium",
	Petersburg:     "Petersburg",
	Istanbul:       "Istanbul",
	Berlin:         "Berlin",
	London:         "London",
	Merge:          "Merge",
	Shanghai:       "Shanghai",
	Cancun:         "Cancun",
	Prague:         "Prague",
}

// String returns the fork name.
func (s SpecID) String() string {
	if int(s) < len(specNames) {
		return specNames[s]
	}
	return fmt.Sprintf("SpecID(%d)", uint8(s))
}

// IsEnabledIn reports whether the rules of fork are active under s.
func (s SpecID) IsEnabledIn(fork SpecID) bool {
	return s >= fork
}

// RefundQuotient is the divisor capping the final refund against gas spent:
// 2 before London, 5 from London on (EIP-3529).
func (s SpecID) RefundQuotient() uint64 {
	if s.IsEnabledIn(London) {
		return gethparams.RefundQuotientEIP3529
	}
	return gethparams.RefundQuotient
}

// ParseSpecID resolves a fork name case-insensitively. "latest" maps to Latest.
func ParseSpecID(name string) (SpecID, error) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "latest") {
		return Latest, nil
	}
	for id, n := range specNames {
		if strings.EqualFold(n, name) {
			return SpecID(id), nil
		}
	}
	switch strings.ToLower(name) {
	case "constantinople":
		return Petersburg, nil
	case "paris":
		return Merge, nil
	}
	return 0, fmt.Errorf("unknown spec %q", name)
}
