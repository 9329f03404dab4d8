// Package rank derives a tier and a display title from a point balance.
// Pure functions, no I/O.
package rank

import "fmt"

type Tier int

const (
	Basic Tier = iota
	Pro
	Elite
)

// Point thresholds between tiers, closed-open: exactly 15 is PRO,
// exactly 30 is ELITE.
const (
	ProThreshold   = 15
	EliteThreshold = 30
)

// TitleLimit is the Telegram custom-title length limit in characters.
const TitleLimit = 16

func (t Tier) String() string {
	switch t {
	case Elite:
		return "ELITE"
	case Pro:
		return "PRO"
	default:
		return "BASIC"
	}
}

func TierFor(points int) Tier {
	switch {
	case points >= EliteThreshold:
		return Elite
	case points >= ProThreshold:
		return Pro
	default:
		return Basic
	}
}

func Stars(t Tier) string {
	switch t {
	case Elite:
		return "★★★"
	case Pro:
		return "★★☆"
	default:
		return "☆☆☆"
	}
}

// Title renders the external custom title: stars, tier label and the point
// total in brackets, truncated to TitleLimit. A non-empty ownerLabel
// substitutes the tier name for the chat creator; the star encoding is the
// same for everyone.
func Title(points int, ownerLabel string) string {
	label := TierFor(points).String()
	if ownerLabel != "" {
		label = ownerLabel
	}
	return truncate(fmt.Sprintf("%s %s [%d]", Stars(TierFor(points)), label, points), TitleLimit)
}

// Next reports the next tier and how many points remain until it.
// ok is false once the top tier is reached.
func Next(points int) (next Tier, remaining int, ok bool) {
	switch TierFor(points) {
	case Basic:
		return Pro, ProThreshold - points, true
	case Pro:
		return Elite, EliteThreshold - points, true
	default:
		return Elite, 0, false
	}
}

// Progress reports how far into the current tier the balance is, 0–100.
func Progress(points int) int {
	var p float64
	switch TierFor(points) {
	case Basic:
		p = float64(points) / float64(ProThreshold) * 100
	case Pro:
		p = float64(points-ProThreshold) / float64(EliteThreshold-ProThreshold) * 100
	default:
		p = 100
	}
	return int(p)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
