package client

import (
	"context"
	"net/url"

	"github.com/turtacn/KeyGap-Intelligence/internal/application/analysis"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// Result is a finished analysis as stored by the server.
type Result = analysis.Result

// CreateAnalysisRequest asks for a comparison of Primary against Competitors.
// Zero options take the server defaults.
type CreateAnalysisRequest struct {
	Primary            string   `json:"primary"`
	Competitors        []string `json:"competitors"`
	LocationCode       int      `json:"location_code,omitempty"`
	LanguageCode       string   `json:"language_code,omitempty"`
	KeywordLimit       int      `json:"keyword_limit,omitempty"`
	WeakPositionMargin *int     `json:"weak_position_margin,omitempty"`
	Owner              string   `json:"owner,omitempty"`
	Product            string   `json:"product,omitempty"`
}

func (r *CreateAnalysisRequest) validate() error {
	if r == nil || r.Primary == "" {
		return errors.New(errors.ErrCodeValidation, "primary domain is required")
	}
	if len(r.Competitors) == 0 {
		return errors.New(errors.ErrCodeValidation, "at least one competitor is required")
	}
	return nil
}

// SubmitResponse acknowledges a queued analysis.
type SubmitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Href   string `json:"href"`
}

// AnalysesClient calls the /api/v1/analyses endpoints.
type AnalysesClient struct {
	client *Client
}

// Create runs an analysis and waits for the result.
func (a *AnalysesClient) Create(ctx context.Context, req *CreateAnalysisRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	var res Result
	if err := a.client.post(ctx, "/api/v1/analyses", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Submit queues an analysis for a worker. Poll Get with the returned id.
func (a *AnalysesClient) Submit(ctx context.Context, req *CreateAnalysisRequest) (*SubmitResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	var res SubmitResponse
	if err := a.client.post(ctx, "/api/v1/analyses/async", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Get loads a stored analysis.
func (a *AnalysesClient) Get(ctx context.Context, id string) (*Result, error) {
	if id == "" {
		return nil, errors.New(errors.ErrCodeValidation, "analysis id is required")
	}
	var res Result
	if err := a.client.get(ctx, "/api/v1/analyses/"+url.PathEscape(id), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

//Personal.AI order the ending
