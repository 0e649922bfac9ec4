package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyGap-Intelligence/internal/application/analysis"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
)

// AnalysisHandler exposes the analysis service over HTTP.
type AnalysisHandler struct {
	svc    analysis.Service
	logger logging.Logger
}

func NewAnalysisHandler(svc analysis.Service, logger logging.Logger) *AnalysisHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AnalysisHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the analysis endpoints below rg.
func (h *AnalysisHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.Create)
	rg.POST("/analyses/async", h.Submit)
	rg.GET("/analyses/:id", h.Get)
}

// CreateAnalysisRequest is the body of POST /analyses and /analyses/async.
type CreateAnalysisRequest struct {
	Primary            string   `json:"primary" binding:"required"`
	Competitors        []string `json:"competitors" binding:"required,min=1,dive,required"`
	LocationCode       int      `json:"location_code" binding:"gte=0"`
	LanguageCode       string   `json:"language_code"`
	KeywordLimit       int      `json:"keyword_limit" binding:"gte=0"`
	WeakPositionMargin *int     `json:"weak_position_margin" binding:"omitempty,gte=0"`
	Owner              string   `json:"owner"`
	Product            string   `json:"product"`
}

func (r CreateAnalysisRequest) toRequest() analysis.Request {
	return analysis.Request{
		Primary:     r.Primary,
		Competitors: r.Competitors,
		Options: analysis.Options{
			LocationCode:       r.LocationCode,
			LanguageCode:       r.LanguageCode,
			KeywordLimit:       r.KeywordLimit,
			WeakPositionMargin: r.WeakPositionMargin,
		},
		Owner:   r.Owner,
		Product: r.Product,
	}
}

// SubmitResponse acknowledges a queued analysis.
type SubmitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Href   string `json:"href"`
}

// Create runs an analysis synchronously and returns the full result.
func (h *AnalysisHandler) Create(c *gin.Context) {
	var body CreateAnalysisRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Analyze(c.Request.Context(), body.toRequest())
	if err != nil {
		h.logger.Warn("analysis failed", logging.String("primary", body.Primary), logging.Err(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Submit queues an analysis for the worker and answers 202 with its id.
func (h *AnalysisHandler) Submit(c *gin.Context) {
	var body CreateAnalysisRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.svc.Submit(c.Request.Context(), body.toRequest())
	if err != nil {
		respondError(c, err)
		return
	}
	href := "/api/v1/analyses/" + id
	c.Header("Location", href)
	c.JSON(http.StatusAccepted, SubmitResponse{ID: id, Status: "queued", Href: href})
}

// Get returns a stored analysis.
func (h *AnalysisHandler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

//Personal.AI order the ending
