package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/threadsense/pipeline"
	"github.com/cppla/threadsense/utils"
)

// Business codes returned in the response envelope.
const (
	CodeInvalidInput       = 40010
	CodeBadPayload         = 40011
	CodeRateLimited        = 42910
	CodeRetrievalFailed    = 50210
	CodeExpansionFailed    = 50220
	CodeScoringUnavailable = 50310
	CodeTimeout            = 50410
	CodeInternal           = 50000
	CodeStorageUnavailable = 50320
)

// respondPipelineError maps a failed run onto one HTTP response.
func respondPipelineError(ctx *gin.Context, err error) {
	var (
		invalid   *pipeline.InvalidInputError
		retrieval *pipeline.RetrievalError
		expansion *pipeline.ExpansionError
		scoring   *pipeline.ScoringError
	)
	switch {
	case errors.As(err, &invalid):
		utils.Error(ctx, http.StatusBadRequest, CodeInvalidInput, invalid.Error())
	case errors.As(err, &retrieval):
		if retrieval.RateLimited() {
			respondRateLimited(ctx)
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			utils.Error(ctx, http.StatusGatewayTimeout, CodeTimeout, retrieval.Error())
			return
		}
		utils.Error(ctx, http.StatusBadGateway, CodeRetrievalFailed, retrieval.Error())
	case errors.As(err, &expansion):
		if expansion.RateLimited() {
			respondRateLimited(ctx)
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			utils.Error(ctx, http.StatusGatewayTimeout, CodeTimeout, expansion.Error())
			return
		}
		utils.Error(ctx, http.StatusBadGateway, CodeExpansionFailed, expansion.Error())
	case errors.As(err, &scoring):
		utils.Respond(ctx, http.StatusServiceUnavailable, CodeScoringUnavailable, "scoring service unavailable", gin.H{
			"kind":   scoring.Kind.String(),
			"status": scoring.Status,
			"body":   scoring.Body,
		})
	default:
		utils.L().Error("pipeline failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

func respondRateLimited(ctx *gin.Context) {
	ctx.Header("Retry-After", "60")
	utils.Error(ctx, http.StatusTooManyRequests, CodeRateLimited, "reddit rate limit reached, try again later")
}
