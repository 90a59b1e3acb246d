package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/api/middleware"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/deploy"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/pricing"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/pkg/errors"
)

// Deployer is the part of deploy.Service the HTTP surface needs
type Deployer interface {
	Preview(ctx context.Context, cfg domain.PricingConfig, opts deploy.DiffOptions) (domain.DeploymentDiff, error)
	Start(ctx context.Context, cfg domain.PricingConfig, opts deploy.DiffOptions) (string, error)
	Progress(ctx context.Context, runID string, afterSeq int) ([]domain.DeploymentProgress, error)
	Result(ctx context.Context, runID string) (domain.DeploymentResult, error)
}

// DeploymentRequest is a pricing document plus the handles the caller
// confirms may be permanently deleted
type DeploymentRequest struct {
	pricing.Document
	ConfirmDelete []string `json:"confirm_delete"`
}

// StartDeploymentResponse is returned by POST /v1/deployments
type StartDeploymentResponse struct {
	RunID       string `json:"run_id"`
	ProgressURL string `json:"progress_url"`
	ResultURL   string `json:"result_url"`
}

// ProgressResponse is returned by GET /v1/deployments/:id/progress
type ProgressResponse struct {
	RunID    string                      `json:"run_id"`
	Events   []domain.DeploymentProgress `json:"events"`
	Next     int                         `json:"next_after"`
	Finished bool                        `json:"finished"`
}

// bindDeploymentRequest writes the error response itself and returns false on failure.
// Unknown fields are rejected, as in pricing.Parse.
func bindDeploymentRequest(c *gin.Context) (domain.PricingConfig, deploy.DiffOptions, bool) {
	var req DeploymentRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return domain.PricingConfig{}, deploy.DiffOptions{}, false
	}

	cfg, err := req.Document.Config()
	if err != nil {
		var verr *errors.ErrValidation
		if stderrors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Message, "problems": verr.Problems()})
			return domain.PricingConfig{}, deploy.DiffOptions{}, false
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return domain.PricingConfig{}, deploy.DiffOptions{}, false
	}
	return cfg, deploy.DiffOptions{ConfirmDelete: req.ConfirmDelete}, true
}

func identityFields(c *gin.Context) []zap.Field {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		return nil
	}
	return []zap.Field{zap.String("subject", identity.Subject), zap.String("kind", identity.Kind)}
}

// HandlePreviewDeployment handles POST /v1/deployments/preview. It never mutates the store.
func HandlePreviewDeployment(deployer Deployer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, opts, ok := bindDeploymentRequest(c)
		if !ok {
			return
		}

		diff, err := deployer.Preview(c.Request.Context(), cfg, opts)
		if err != nil {
			if stderrors.Is(err, domain.ErrInvalidArgument) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			logger.Error("Failed to preview deployment", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read remote catalog", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, diff)
	}
}

// HandleStartDeployment handles POST /v1/deployments
func HandleStartDeployment(deployer Deployer, idempotency *middleware.IdempotencyStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, requestHash, existingRunID, isExisting := middleware.GetIdempotencyInfo(c)
		if isExisting {
			c.JSON(http.StatusAccepted, startResponse(existingRunID))
			return
		}

		cfg, opts, ok := bindDeploymentRequest(c)
		if !ok {
			return
		}

		runID, err := deployer.Start(c.Request.Context(), cfg, opts)
		if err != nil {
			switch {
			case stderrors.Is(err, domain.ErrDeploymentInProgress):
				c.JSON(http.StatusConflict, gin.H{"error": "a deployment is already in progress"})
			case stderrors.Is(err, domain.ErrInvalidArgument):
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			default:
				logger.Error("Failed to start deployment", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		if key != "" && idempotency != nil {
			idempotency.Put(key, requestHash, runID)
		}

		logger.Info("Deployment started", append(identityFields(c), zap.String("run_id", runID))...)
		c.JSON(http.StatusAccepted, startResponse(runID))
	}
}

func startResponse(runID string) StartDeploymentResponse {
	return StartDeploymentResponse{
		RunID:       runID,
		ProgressURL: "/v1/deployments/" + runID + "/progress",
		ResultURL:   "/v1/deployments/" + runID,
	}
}

// HandleGetDeploymentProgress handles GET /v1/deployments/:id/progress?after=<seq>
func HandleGetDeploymentProgress(deployer Deployer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("id")
		after := 0
		if a := c.Query("after"); a != "" {
			n, err := strconv.Atoi(a)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "after must be a non-negative integer"})
				return
			}
			after = n
		}

		events, err := deployer.Progress(c.Request.Context(), runID, after)
		if err != nil {
			logger.Error("Failed to list deployment progress", zap.String("run_id", runID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		next := after
		if len(events) > 0 {
			next = events[len(events)-1].Seq
		}
		_, resErr := deployer.Result(c.Request.Context(), runID)
		if resErr != nil && !stderrors.Is(resErr, domain.ErrNotFound) {
			logger.Error("Failed to get deployment result", zap.String("run_id", runID), zap.Error(resErr))
		}

		// Unknown or expired runs have neither events nor a result
		if len(events) == 0 && stderrors.Is(resErr, domain.ErrNotFound) {
			known := false
			if after > 0 {
				all, err := deployer.Progress(c.Request.Context(), runID, 0)
				if err != nil {
					logger.Error("Failed to list deployment progress", zap.String("run_id", runID), zap.Error(err))
					c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
					return
				}
				known = len(all) > 0
			}
			if !known {
				c.JSON(http.StatusNotFound, gin.H{"error": "deployment not found"})
				return
			}
		}

		c.JSON(http.StatusOK, ProgressResponse{
			RunID:    runID,
			Events:   events,
			Next:     next,
			Finished: resErr == nil,
		})
	}
}

// HandleGetDeployment handles GET /v1/deployments/:id. 404 until the run has finished.
func HandleGetDeployment(deployer Deployer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("id")
		result, err := deployer.Result(c.Request.Context(), runID)
		if err != nil {
			if stderrors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "deployment result not found"})
				return
			}
			logger.Error("Failed to get deployment result", zap.String("run_id", runID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// HandleListVessels handles GET /v1/vessels: the vessels currently in the store
func HandleListVessels(catalog deploy.CatalogReader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		vessels, err := catalog.ListVessels(c.Request.Context())
		if err != nil {
			logger.Error("Failed to list remote vessels", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read remote catalog"})
			return
		}
		if vessels == nil {
			vessels = []domain.RemoteProduct{}
		}
		c.JSON(http.StatusOK, gin.H{"vessels": vessels})
	}
}
