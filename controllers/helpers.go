package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/compoundhabits/habits/middleware"
	"github.com/compoundhabits/habits/models"
	"github.com/compoundhabits/habits/stats"
	"github.com/compoundhabits/habits/store"
	"github.com/compoundhabits/habits/utils"
)

func requireOwner(ctx *gin.Context) (models.OwnerID, bool) {
	owner, ok := middleware.OwnerFrom(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return 0, false
	}
	return owner, true
}

func habitIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid habit id")
		return 0, false
	}
	return uint(id), true
}

// respondError maps data layer failures onto the API envelope. Storage
// failures are logged and never reported as empty results.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "habit not found")
	case errors.Is(err, store.ErrInvalidInput):
		utils.Error(ctx, http.StatusBadRequest, 40011, err.Error())
	case errors.Is(err, stats.ErrInvalidSeriesKind):
		utils.Error(ctx, http.StatusBadRequest, 40012, "kind must be one of count, sum, average")
	case errors.Is(err, stats.ErrInvalidDays):
		utils.Error(ctx, http.StatusBadRequest, 40013, "days must be between 0 and 3650")
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "storage unavailable")
	}
}
