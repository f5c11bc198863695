// Package dashboard serves the read-only HTTP API over stored articles and runs.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Analyzer produces cross-sector insights.
type Analyzer interface {
	Analyze(ctx context.Context) (domain.Insights, error)
}

// Deps are the collaborators of the dashboard router.
type Deps struct {
	Reader   ports.DashboardReader
	Sources  ports.SourceRegistry
	Health   Pinger
	Insights Analyzer
	Metrics  http.Handler
	Logger   *slog.Logger
	Now      func() time.Time
}

type handler struct {
	deps Deps
}

// NewRouter builds the gin engine with every read endpoint mounted.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &handler{deps: deps}

	router := gin.New()
	router.Use(requestLogger(deps.Logger))
	router.Use(gin.Recovery())

	router.GET("/healthz", h.health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := router.Group("/api")
	api.GET("/sources", h.sources)
	api.GET("/articles", h.articles)
	api.GET("/runs", h.runs)
	api.GET("/runs/:id", h.run)
	api.GET("/stats", h.stats)
	if deps.Insights != nil {
		api.GET("/insights", h.insights)
	}

	return router
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (h *handler) health(c *gin.Context) {
	if h.deps.Health != nil {
		if err := h.deps.Health.Ping(c.Request.Context()); err != nil {
			h.deps.Logger.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type sourceView struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Sector   domain.Sector `json:"sector"`
	URL      string        `json:"url"`
	Keywords []string      `json:"keywords"`
	Enabled  bool          `json:"enabled"`
}

func (h *handler) sources(c *gin.Context) {
	list := h.deps.Sources.List()
	out := make([]sourceView, 0, len(list))
	for _, s := range list {
		out = append(out, sourceView{ID: s.ID, Name: s.Name, Sector: s.Sector, URL: s.URL, Keywords: s.KeywordHints, Enabled: s.Enabled})
	}
	c.JSON(http.StatusOK, gin.H{"sources": out, "count": len(out)})
}

func (h *handler) articles(c *gin.Context) {
	var filter domain.ArticleFilter

	if raw := c.Query("sector"); raw != "" {
		sector, err := domain.ParseSector(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		filter.Sector = sector
	}
	filter.SourceID = strings.TrimSpace(c.Query("source"))

	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	filter.Limit = limit

	if raw := c.Query("since"); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			badRequest(c, "since must be RFC3339 or YYYY-MM-DD")
			return
		}
		filter.Since = since
	}

	articles, err := h.deps.Reader.ListArticles(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, "list articles", err)
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles, "count": len(articles)})
}

func (h *handler) runs(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	runs, err := h.deps.Reader.ListRunReports(c.Request.Context(), limit)
	if err != nil {
		h.internalError(c, "list runs", err)
		return
	}
	if runs == nil {
		runs = []domain.RunReport{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (h *handler) run(c *gin.Context) {
	report, err := h.deps.Reader.GetRunReport(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		h.internalError(c, "get run", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) stats(c *gin.Context) {
	stats, err := h.deps.Reader.Stats(c.Request.Context(), h.deps.Now())
	if err != nil {
		h.internalError(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handler) insights(c *gin.Context) {
	insights, err := h.deps.Insights.Analyze(c.Request.Context())
	if err != nil {
		h.internalError(c, "insights", err)
		return
	}
	c.JSON(http.StatusOK, insights)
}

func (h *handler) internalError(c *gin.Context, op string, err error) {
	h.deps.Logger.Error("dashboard query failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// parseLimit reads ?limit; zero means the store default.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func parseSince(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
