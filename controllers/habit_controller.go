package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compoundhabits/habits/models"
	"github.com/compoundhabits/habits/stats"
	"github.com/compoundhabits/habits/store"
	"github.com/compoundhabits/habits/utils"
)

// HabitController serves habit and entry CRUD. Every mutation drops the
// owner's cached heatmaps.
type HabitController struct {
	store *store.Store
	stats *stats.Service
	cache *utils.Cache
}

// NewHabitController creates a new HabitController instance.
func NewHabitController(st *store.Store, svc *stats.Service, cache *utils.Cache) *HabitController {
	return &HabitController{store: st, stats: svc, cache: cache}
}

type createHabitRequest struct {
	Name         string   `json:"name"`
	Unit         *string  `json:"unit"`
	DefaultValue *float64 `json:"default_value"`
}

type recordEntryRequest struct {
	Value *float64 `json:"value"`
}

// ListHabits returns today's snapshot of every habit.
func (h *HabitController) ListHabits(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	snaps, err := h.stats.Today(ctx.Request.Context(), owner)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, snaps)
}

// CreateHabit adds a habit.
func (h *HabitController) CreateHabit(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	var req createHabitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	in := store.NewHabit{Name: utils.SanitizeText(req.Name), DefaultValue: req.DefaultValue}
	if req.Unit != nil {
		unit := utils.SanitizeText(*req.Unit)
		in.Unit = &unit
	}
	habit, err := h.store.CreateHabit(ctx.Request.Context(), owner, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	h.invalidate(ctx, owner)

	snap, err := h.stats.TodayHabit(ctx.Request.Context(), owner, habit.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, snap)
}

// GetHabit returns today's snapshot of one habit.
func (h *HabitController) GetHabit(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	id, ok := habitIDParam(ctx)
	if !ok {
		return
	}
	h.respondSnapshot(ctx, owner, id)
}

// DeleteHabit removes a habit together with all of its entries.
func (h *HabitController) DeleteHabit(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	id, ok := habitIDParam(ctx)
	if !ok {
		return
	}
	deleted, err := h.store.DeleteHabit(ctx.Request.Context(), owner, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !deleted {
		respondError(ctx, store.ErrNotFound)
		return
	}
	h.invalidate(ctx, owner)
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}

// RecordEntry logs an entry for today; the body and its value are optional.
func (h *HabitController) RecordEntry(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	id, ok := habitIDParam(ctx)
	if !ok {
		return
	}
	var req recordEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	if _, err := h.store.RecordEntry(ctx.Request.Context(), owner, id, req.Value); err != nil {
		respondError(ctx, err)
		return
	}
	h.invalidate(ctx, owner)
	h.respondSnapshot(ctx, owner, id)
}

// DeleteLastEntry undoes the most recent entry of a habit. A habit without
// entries is left unchanged.
func (h *HabitController) DeleteLastEntry(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}
	id, ok := habitIDParam(ctx)
	if !ok {
		return
	}
	if _, err := h.store.GetHabit(ctx.Request.Context(), owner, id); err != nil {
		respondError(ctx, err)
		return
	}
	deleted, err := h.store.DeleteLastEntry(ctx.Request.Context(), owner, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if deleted {
		h.invalidate(ctx, owner)
	}
	h.respondSnapshot(ctx, owner, id)
}

func (h *HabitController) respondSnapshot(ctx *gin.Context, owner models.OwnerID, id uint) {
	snap, err := h.stats.TodayHabit(ctx.Request.Context(), owner, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, snap)
}

func (h *HabitController) invalidate(ctx *gin.Context, owner models.OwnerID) {
	h.cache.InvalidateByPrefix(ctx.Request.Context(), heatmapCachePrefix(owner))
}
