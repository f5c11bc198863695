package domain

import (
	"fmt"
	"strings"
)

// Sector groups monitored companies for reporting and classification hints.
type Sector string

const (
	SectorFinancial Sector = "Financial"
	SectorRetail    Sector = "Retail"
	SectorMedia     Sector = "Media"
	SectorCustom    Sector = "Custom"
)

// ParseSector accepts the canonical names plus the labels used by older
// company lists ("Banking", "Media & Entertainment", ...).
func ParseSector(value string) (Sector, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "financial", "finance", "banking", "investment banking", "asset management", "financial services":
		return SectorFinancial, nil
	case "retail":
		return SectorRetail, nil
	case "media", "media & entertainment", "entertainment":
		return SectorMedia, nil
	case "custom", "":
		return SectorCustom, nil
	default:
		return "", fmt.Errorf("unknown sector %q", value)
	}
}

// DefaultHints returns the sector-wide keyword hints merged into every
// classification request for sources of that sector.
func (s Sector) DefaultHints() []string {
	switch s {
	case SectorFinancial:
		return []string{"fintech", "fraud detection", "algorithmic trading", "digital banking", "risk modeling"}
	case SectorRetail:
		return []string{"personalization", "recommendation engine", "supply chain", "shopping assistant", "customer experience"}
	case SectorMedia:
		return []string{"content generation", "streaming", "recommendation", "creative tools", "synthetic media"}
	default:
		return nil
	}
}

// Source is one monitored website. It is immutable for the duration of a run.
type Source struct {
	ID           string
	Name         string
	Sector       Sector
	URL          string
	KeywordHints []string
	Enabled      bool
}

// Hints merges source-specific hints with the sector defaults, lower-cased and
// without duplicates, preserving first-seen order.
func (s Source) Hints() []string {
	seen := make(map[string]struct{}, len(s.KeywordHints))
	out := make([]string, 0, len(s.KeywordHints))
	add := func(values []string) {
		for _, v := range values {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	add(s.KeywordHints)
	add(s.Sector.DefaultHints())
	return out
}
