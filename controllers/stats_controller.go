package controllers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/compoundhabits/habits/models"
	"github.com/compoundhabits/habits/stats"
	"github.com/compoundhabits/habits/store"
	"github.com/compoundhabits/habits/utils"
)

// StatsController serves the heatmap and per-habit series.
type StatsController struct {
	store *store.Store
	stats *stats.Service
	cache *utils.Cache
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(st *store.Store, svc *stats.Service, cache *utils.Cache) *StatsController {
	return &StatsController{store: st, stats: svc, cache: cache}
}

func heatmapCachePrefix(owner models.OwnerID) string {
	return "cache:heatmap:" + owner.String() + ":"
}

// GetHeatmap returns the trailing heatmap, cached per owner and day.
func (s *StatsController) GetHeatmap(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	key := heatmapCachePrefix(owner) + models.FormatDate(s.store.Now())
	if b, ok := s.cache.GetBytes(ctx.Request.Context(), key); ok {
		var hm stats.Heatmap
		if err := json.Unmarshal(b, &hm); err == nil {
			utils.Success(ctx, hm)
			return
		}
	}

	hm, err := s.stats.Heatmap(ctx.Request.Context(), owner)
	if err != nil {
		respondError(ctx, err)
		return
	}
	s.cache.SetJSON(ctx.Request.Context(), key, hm)
	utils.Success(ctx, hm)
}

// GetSeries returns one line series; days defaults to 30.
func (s *StatsController) GetSeries(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	id, ok := habitIDParam(ctx)
	if !ok {
		return
	}
	kind, err := stats.ParseSeriesKind(ctx.Param("kind"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	days := stats.DefaultLineDays
	if raw := ctx.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 0 {
			respondError(ctx, stats.ErrInvalidDays)
			return
		}
	}

	line, err := s.stats.Line(ctx.Request.Context(), owner, id, kind, days)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, line)
}

type plotEntry struct {
	HabitID uint              `json:"habit_id"`
	Name    string            `json:"name"`
	Unit    string            `json:"unit"`
	Series  map[string]string `json:"series"`
}

// ListPlots indexes the series available for each habit.
func (s *StatsController) ListPlots(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	habits, err := s.store.ListHabits(ctx.Request.Context(), owner)
	if err != nil {
		respondError(ctx, err)
		return
	}
	plots := make([]plotEntry, 0, len(habits))
	for _, h := range habits {
		series := make(map[string]string, len(stats.SeriesKinds))
		for _, k := range stats.SeriesKinds {
			series[string(k)] = fmt.Sprintf("/api/v1/habits/%d/series/%s", h.ID, k)
		}
		plots = append(plots, plotEntry{HabitID: h.ID, Name: h.Name, Unit: h.UnitLabel(), Series: series})
	}
	utils.Success(ctx, gin.H{"habits": plots, "kinds": stats.SeriesKinds, "heatmap": "/api/v1/heatmap"})
}
