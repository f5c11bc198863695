package domain

import "time"

// SectorInsight summarises AI activity of one sector.
type SectorInsight struct {
	Sector               Sector   `json:"sector"`
	ArticleCount         int      `json:"article_count"`
	RecentActivity       int      `json:"recent_activity"`
	ActivityTrend        string   `json:"activity_trend"`
	KeyThemes            []string `json:"key_themes"`
	AIMaturity           string   `json:"ai_maturity"`
	CompetitiveIntensity string   `json:"competitive_intensity"`
	StrategicDirection   string   `json:"strategic_direction"`
}

// AdoptionScore rates overall AI activity across sectors.
type AdoptionScore struct {
	Overall            int            `json:"overall"`
	Trend              string         `json:"trend"`
	SectorDistribution map[Sector]int `json:"sector_distribution"`
}

// Insights is the cross-sector analysis of stored articles.
type Insights struct {
	GeneratedAt       time.Time       `json:"generated_at"`
	TotalArticles     int             `json:"total_articles"`
	Sectors           []SectorInsight `json:"sectors"`
	TrendingTopics    []string        `json:"trending_topics"`
	SharedThemes      []string        `json:"shared_themes"`
	InnovationLeaders []Sector        `json:"innovation_leaders"`
	AdoptionScore     AdoptionScore   `json:"ai_adoption_score"`
}
