package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/llm"
	"github.com/Harshitk-cp/loancouncil/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const cleanProfile = "GPA: 0.85, trường tier 1, ngành STEM. Thu nhập 8,000,000 VND/tháng. " +
	"Số tiền vay 45,000,000 VND. Không có nợ."

// MockDeliberationService is a mock implementation of handlers.DeliberationService.
type MockDeliberationService struct {
	mock.Mock
}

func (m *MockDeliberationService) Deliberate(ctx context.Context, req service.DeliberationRequest) (*domain.Deliberation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deliberation), args.Error(1)
}

func (m *MockDeliberationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deliberation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deliberation), args.Error(1)
}

func (m *MockDeliberationService) List(ctx context.Context, limit int) ([]domain.Deliberation, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Deliberation), args.Error(1)
}

func (m *MockDeliberationService) Stats(ctx context.Context) (*domain.DeliberationStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliberationStats), args.Error(1)
}

func (m *MockDeliberationService) PreviewFeatures(profile string) (*service.FeaturePreview, error) {
	args := m.Called(profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FeaturePreview), args.Error(1)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func do(t *testing.T, app *App, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func realApp(apiKeys ...string) *App {
	svc := service.NewDeliberationService(nil, llm.NewMockClient(), domain.DefaultPolicy(), zap.NewNop())
	return newApp(svc, nil, apiKeys, zap.NewNop())
}

func TestCreateDeliberation(t *testing.T) {
	app := realApp()

	rec := do(t, app, http.MethodPost, "/v1/deliberations", map[string]string{
		"profile":      cleanProfile,
		"external_ref": "row-7",
	}, map[string]string{"X-Request-ID": "req-42"})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	var got domain.Deliberation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.DecisionApprove, got.Record.Decision)
	assert.Equal(t, 7, got.Record.PassedCount)
	assert.Equal(t, "req-42", got.RequestID)
	assert.Equal(t, "row-7", got.ExternalRef)
	assert.NotEmpty(t, got.Transcript)
	assert.True(t, got.AgentStatus.AtLeastOne)
}

func TestCreateDeliberation_BadRequests(t *testing.T) {
	app := realApp()

	tests := []struct {
		name string
		body any
	}{
		{"empty profile", map[string]string{"profile": "  "}},
		{"invalid application", map[string]any{"application": map[string]any{"age": 99}}},
		{"not json", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, app, http.MethodPost, "/v1/deliberations", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestExtractFeatures(t *testing.T) {
	app := realApp()

	rec := do(t, app, http.MethodPost, "/v1/features/extract", map[string]string{"profile": cleanProfile}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Outcome struct {
			Decision string `json:"decision"`
		} `json:"outcome"`
		Policy domain.Policy `json:"policy"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "approve", got.Outcome.Decision)
	assert.Equal(t, domain.DefaultPolicy(), got.Policy)

	rec = do(t, app, http.MethodPost, "/v1/features/extract", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookupErrors(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name   string
		setup  func(m *MockDeliberationService)
		path   string
		status int
	}{
		{
			name: "not found",
			setup: func(m *MockDeliberationService) {
				m.On("GetByID", mock.Anything, id).Return(nil, service.ErrDeliberationNotFound)
			},
			path:   "/v1/deliberations/" + id.String(),
			status: http.StatusNotFound,
		},
		{
			name:   "bad id",
			setup:  func(m *MockDeliberationService) {},
			path:   "/v1/deliberations/not-a-uuid",
			status: http.StatusBadRequest,
		},
		{
			name: "store disabled",
			setup: func(m *MockDeliberationService) {
				m.On("List", mock.Anything, 0).Return(nil, service.ErrStoreUnavailable)
			},
			path:   "/v1/deliberations",
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "bad limit",
			setup:  func(m *MockDeliberationService) {},
			path:   "/v1/deliberations?limit=abc",
			status: http.StatusBadRequest,
		},
		{
			name:   "stats failure",
			setup:  func(m *MockDeliberationService) { m.On("Stats", mock.Anything).Return(nil, errors.New("boom")) },
			path:   "/v1/deliberations/stats",
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockDeliberationService)
			tt.setup(m)
			app := newApp(m, nil, nil, zap.NewNop())

			rec := do(t, app, http.MethodGet, tt.path, nil, nil)
			assert.Equal(t, tt.status, rec.Code)
			m.AssertExpectations(t)
		})
	}
}

func TestListDeliberations(t *testing.T) {
	m := new(MockDeliberationService)
	m.On("List", mock.Anything, 5).Return([]domain.Deliberation{{ID: uuid.New()}}, nil)
	app := newApp(m, nil, nil, zap.NewNop())

	rec := do(t, app, http.MethodGet, "/v1/deliberations?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Deliberations []domain.Deliberation `json:"deliberations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Deliberations, 1)
	m.AssertExpectations(t)
}

func TestAPIKeyAuth(t *testing.T) {
	app := realApp("secret-1")

	rec := do(t, app, http.MethodPost, "/v1/features/extract", map[string]string{"profile": cleanProfile}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, app, http.MethodPost, "/v1/features/extract", map[string]string{"profile": cleanProfile},
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, app, http.MethodPost, "/v1/features/extract", map[string]string{"profile": cleanProfile},
		map[string]string{"Authorization": "Bearer secret-1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays open
	rec = do(t, app, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthVersionMetrics(t *testing.T) {
	app := newApp(new(MockDeliberationService), fakePinger{err: errors.New("down")}, nil, zap.NewNop())

	rec := do(t, app, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, app, http.MethodGet, "/version", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)

	rec = do(t, app, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	// the failed health check is counted
	assert.EqualValues(t, 1, m["error_count"])
	assert.EqualValues(t, 3, m["request_count"])
}
