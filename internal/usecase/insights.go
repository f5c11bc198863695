package usecase

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"GenAIMonitor/internal/domain"
)

const (
	insightsWindow      = 90 * 24 * time.Hour
	insightsMaxArticles = 500
	recentWindow        = 7 * 24 * time.Hour
	keyThemeCount       = 5
	trendingTopicCount  = 3
)

// ArticleLister is the read access insights need.
type ArticleLister interface {
	ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)
}

// ThemeFinder names the themes present in lower-cased text.
type ThemeFinder interface {
	Find(text string) []string
}

// SectorInsights derives per-sector themes, maturity and activity from
// recently discovered articles.
type SectorInsights struct {
	articles ArticleLister
	themes   ThemeFinder
	maturity ThemeFinder
	now      func() time.Time
}

// NewSectorInsights wires the analyser. maturity must report "advanced" and
// "basic" levels.
func NewSectorInsights(articles ArticleLister, themes, maturity ThemeFinder, now func() time.Time) *SectorInsights {
	if now == nil {
		now = time.Now
	}
	return &SectorInsights{articles: articles, themes: themes, maturity: maturity, now: now}
}

type sectorStats struct {
	articles []domain.Article
	themes   map[string]int
	recent   int
	advanced int
	basic    int
}

// Analyze reads articles discovered in the last 90 days (at most 500) and
// aggregates them by sector.
func (s *SectorInsights) Analyze(ctx context.Context) (domain.Insights, error) {
	now := s.now().UTC()
	articles, err := s.articles.ListArticles(ctx, domain.ArticleFilter{
		Since: now.Add(-insightsWindow),
		Limit: insightsMaxArticles,
	})
	if err != nil {
		return domain.Insights{}, fmt.Errorf("insights: %w", err)
	}

	out := domain.Insights{
		GeneratedAt:   now,
		TotalArticles: len(articles),
		Sectors:       []domain.SectorInsight{},
		AdoptionScore: adoptionScore(len(articles)),
	}
	out.AdoptionScore.SectorDistribution = make(map[domain.Sector]int)

	bySector := make(map[domain.Sector]*sectorStats)
	overall := make(map[string]int)
	themeSectors := make(map[string]map[domain.Sector]struct{})

	for _, a := range articles {
		sector := a.Sector
		if sector == "" {
			sector = domain.SectorCustom
		}
		st, ok := bySector[sector]
		if !ok {
			st = &sectorStats{themes: make(map[string]int)}
			bySector[sector] = st
		}
		st.articles = append(st.articles, a)
		if !a.DiscoveredAt.IsZero() && now.Sub(a.DiscoveredAt) <= recentWindow {
			st.recent++
		}

		text := strings.ToLower(a.Title + " " + a.Summary)
		for _, theme := range s.themes.Find(text) {
			st.themes[theme]++
			overall[theme]++
			if themeSectors[theme] == nil {
				themeSectors[theme] = make(map[domain.Sector]struct{})
			}
			themeSectors[theme][sector] = struct{}{}
		}
		levels := s.maturity.Find(text)
		switch {
		case slices.Contains(levels, "advanced"):
			st.advanced++
		case slices.Contains(levels, "basic"):
			st.basic++
		}
	}

	for _, sector := range sectorOrder(bySector) {
		st := bySector[sector]
		themes := rankThemes(st.themes)
		out.Sectors = append(out.Sectors, domain.SectorInsight{
			Sector:               sector,
			ArticleCount:         len(st.articles),
			RecentActivity:       st.recent,
			ActivityTrend:        activityTrend(st.recent, len(st.articles)),
			KeyThemes:            head(themes, keyThemeCount),
			AIMaturity:           maturity(st.advanced, st.basic, len(st.articles)),
			CompetitiveIntensity: intensity(len(st.articles)),
			StrategicDirection:   direction(sector, themes),
		})
		out.AdoptionScore.SectorDistribution[sector] = len(st.articles)
	}

	out.TrendingTopics = head(rankThemes(overall), trendingTopicCount)
	out.SharedThemes = sharedThemes(themeSectors)
	out.InnovationLeaders = innovationLeaders(out.Sectors)
	return out, nil
}

// sectorOrder lists known sectors first, then any others alphabetically.
func sectorOrder(by map[domain.Sector]*sectorStats) []domain.Sector {
	known := []domain.Sector{domain.SectorFinancial, domain.SectorRetail, domain.SectorMedia, domain.SectorCustom}
	var out []domain.Sector
	for _, s := range known {
		if _, ok := by[s]; ok {
			out = append(out, s)
		}
	}
	var rest []domain.Sector
	for s := range by {
		if !slices.Contains(known, s) {
			rest = append(rest, s)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// rankThemes orders by count, then name.
func rankThemes(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for theme := range counts {
		out = append(out, theme)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func head(list []string, n int) []string {
	if len(list) > n {
		list = list[:n]
	}
	if list == nil {
		return []string{}
	}
	return list
}

func activityTrend(recent, total int) string {
	if float64(recent) > float64(total)*0.6 {
		return "increasing"
	}
	return "steady"
}

func maturity(advanced, basic, total int) string {
	if total == 0 {
		return "Emerging"
	}
	ratio := float64(advanced) / float64(total)
	switch {
	case ratio > 0.4:
		return "Advanced"
	case ratio > 0.2:
		return "Mature"
	case basic > 0:
		return "Developing"
	default:
		return "Emerging"
	}
}

func intensity(n int) string {
	switch {
	case n > 8:
		return "High"
	case n > 4:
		return "Medium"
	default:
		return "Low"
	}
}

func direction(sector domain.Sector, themes []string) string {
	top := head(themes, 3)
	switch {
	case slices.Contains(top, "automation"):
		return "Focus on operational automation and efficiency gains"
	case slices.Contains(top, "personalization"):
		return "Prioritizing customer experience personalization"
	case slices.Contains(top, "content generation"):
		return "Leading in AI-powered content innovation"
	}
	switch sector {
	case domain.SectorFinancial:
		return "Expanding AI-driven risk assessment capabilities"
	case domain.SectorRetail:
		return "Enhancing supply chain AI optimization"
	case domain.SectorMedia:
		return "Advancing generative content creation tools"
	default:
		return "Adopting AI across business operations"
	}
}

func adoptionScore(total int) domain.AdoptionScore {
	switch {
	case total > 10:
		return domain.AdoptionScore{Overall: 85, Trend: "Accelerating"}
	case total > 5:
		return domain.AdoptionScore{Overall: 78, Trend: "Growing"}
	case total > 0:
		return domain.AdoptionScore{Overall: 72, Trend: "Steady"}
	default:
		return domain.AdoptionScore{Overall: 0, Trend: "No data"}
	}
}

// sharedThemes are themes seen in at least two sectors.
func sharedThemes(themeSectors map[string]map[domain.Sector]struct{}) []string {
	out := []string{}
	for theme, sectors := range themeSectors {
		if len(sectors) >= 2 {
			out = append(out, theme)
		}
	}
	slices.Sort(out)
	return out
}

// innovationLeaders are sectors with more than two articles, busiest first.
func innovationLeaders(sectors []domain.SectorInsight) []domain.Sector {
	var active []domain.SectorInsight
	for _, s := range sectors {
		if s.ArticleCount > 2 {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].ArticleCount > active[j].ArticleCount })
	out := make([]domain.Sector, 0, len(active))
	for _, s := range active {
		out = append(out, s.Sector)
	}
	return out
}
