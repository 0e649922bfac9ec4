package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyGap-Intelligence/internal/application/analysis"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*analysis.Result)
	return res, args.Error(1)
}

func (m *mockService) Submit(ctx context.Context, req analysis.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockService) Get(ctx context.Context, id string) (*analysis.Result, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*analysis.Result)
	return res, args.Error(1)
}

func newAnalysisRouter(svc analysis.Service) *gin.Engine {
	r := gin.New()
	NewAnalysisHandler(svc, nil).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAnalysisHandler_Create(t *testing.T) {
	svc := new(mockService)
	margin := 3
	want := analysis.Request{
		Primary:     "example.com",
		Competitors: []string{"a.com", "b.com"},
		Options:     analysis.Options{LocationCode: 2826, KeywordLimit: 50, WeakPositionMargin: &margin},
		Owner:       "u-1",
	}
	svc.On("Analyze", mock.Anything, want).Return(&analysis.Result{ID: "an-1", AuditLabel: "label"}, nil)

	w := doJSON(t, newAnalysisRouter(svc), http.MethodPost, "/api/v1/analyses", map[string]interface{}{
		"primary":              "example.com",
		"competitors":          []string{"a.com", "b.com"},
		"location_code":        2826,
		"keyword_limit":        50,
		"weak_position_margin": 3,
		"owner":                "u-1",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got analysis.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "an-1", got.ID)
	svc.AssertExpectations(t)
}

func TestAnalysisHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"missing primary", map[string]interface{}{"competitors": []string{"a.com"}}},
		{"no competitors", map[string]interface{}{"primary": "p.com", "competitors": []string{}}},
		{"empty competitor", map[string]interface{}{"primary": "p.com", "competitors": []string{""}}},
		{"negative limit", map[string]interface{}{"primary": "p.com", "competitors": []string{"a.com"}, "keyword_limit": -1}},
		{"negative margin", map[string]interface{}{"primary": "p.com", "competitors": []string{"a.com"}, "weak_position_margin": -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			w := doJSON(t, newAnalysisRouter(svc), http.MethodPost, "/api/v1/analyses", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, string(errors.ErrCodeValidation), decodeError(t, w).Code)
			svc.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
		})
	}
}

func TestAnalysisHandler_Create_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    errors.ErrorCode
		wantMessage string
	}{
		{
			name:        "primary unavailable",
			err:         errors.New(errors.ErrCodePrimaryUnavailable, "primary domain rankings unavailable").WithDetail("p.com"),
			wantStatus:  http.StatusBadGateway,
			wantCode:    errors.ErrCodePrimaryUnavailable,
			wantMessage: "primary domain rankings unavailable",
		},
		{
			name:        "provider auth",
			err:         errors.New(errors.ErrCodeProviderAuth, "credentials rejected"),
			wantStatus:  http.StatusBadGateway,
			wantCode:    errors.ErrCodeProviderAuth,
			wantMessage: "credentials rejected",
		},
		{
			name:        "invalid domain",
			err:         errors.New(errors.ErrCodeInvalidDomain, "not a domain"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    errors.ErrCodeInvalidDomain,
			wantMessage: "not a domain",
		},
		{
			name:        "consistency violation is masked",
			err:         errors.InternalConsistency("matrix asymmetric at (a,b)"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    errors.ErrCodeInternalConsistency,
			wantMessage: errors.DefaultMessageForCode(errors.ErrCodeInternalConsistency),
		},
		{
			name:        "plain error is masked",
			err:         assert.AnError,
			wantStatus:  http.StatusInternalServerError,
			wantCode:    errors.CodeUnknown,
			wantMessage: "unknown error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("Analyze", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := doJSON(t, newAnalysisRouter(svc), http.MethodPost, "/api/v1/analyses", map[string]interface{}{
				"primary": "p.com", "competitors": []string{"a.com"},
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, string(tt.wantCode), resp.Code)
			assert.Equal(t, tt.wantMessage, resp.Message)
		})
	}
}

func TestAnalysisHandler_Submit(t *testing.T) {
	svc := new(mockService)
	svc.On("Submit", mock.Anything, mock.MatchedBy(func(r analysis.Request) bool {
		return r.Primary == "p.com" && len(r.Competitors) == 1
	})).Return("an-42", nil)

	w := doJSON(t, newAnalysisRouter(svc), http.MethodPost, "/api/v1/analyses/async", map[string]interface{}{
		"primary": "p.com", "competitors": []string{"a.com"},
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/v1/analyses/an-42", w.Header().Get("Location"))
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, SubmitResponse{ID: "an-42", Status: "queued", Href: "/api/v1/analyses/an-42"}, resp)
}

func TestAnalysisHandler_Submit_QueueDown(t *testing.T) {
	svc := new(mockService)
	svc.On("Submit", mock.Anything, mock.Anything).
		Return("", errors.Wrap(assert.AnError, errors.ErrCodeServiceUnavailable, "failed to queue analysis"))

	w := doJSON(t, newAnalysisRouter(svc), http.MethodPost, "/api/v1/analyses/async", map[string]interface{}{
		"primary": "p.com", "competitors": []string{"a.com"},
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "failed to queue analysis", decodeError(t, w).Message)
}

func TestAnalysisHandler_Get(t *testing.T) {
	svc := new(mockService)
	svc.On("Get", mock.Anything, "an-1").Return(&analysis.Result{ID: "an-1"}, nil)
	svc.On("Get", mock.Anything, "missing").Return(nil, errors.New(errors.ErrCodeAnalysisNotFound, "analysis not found").WithDetail("missing"))
	r := newAnalysisRouter(svc)

	t.Run("found", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/v1/analyses/an-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"id":"an-1"`)
	})

	t.Run("not found", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/v1/analyses/missing", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, string(errors.ErrCodeAnalysisNotFound), resp.Code)
		assert.Equal(t, "missing", resp.Detail)
	})
}

//Personal.AI order the ending
