package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/sitegate/internal/auth"
	"github.com/BradenHooton/sitegate/internal/models"
	pkghttp "github.com/BradenHooton/sitegate/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a gate error envelope with the
// given message
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.False(t, resp.Success)
	assert.Equal(t, expectedError, resp.Error, "Error message mismatch")
}

// MockGateService implements GateServiceInterface for testing
type MockGateService struct {
	AuthenticateFunc func(ctx context.Context, clientKey string, password any) error
}

func (m *MockGateService) Authenticate(ctx context.Context, clientKey string, password any) error {
	if m.AuthenticateFunc == nil {
		return models.ErrInvalidPassword
	}
	return m.AuthenticateFunc(ctx, clientKey, password)
}

// MockSessionIssuer implements SessionIssuer for testing
type MockSessionIssuer struct {
	IssueFunc func() (*models.SessionMarker, *auth.SessionCookies, error)
	CheckFunc func(token, issuedAt string) models.SessionStatus
}

func (m *MockSessionIssuer) Issue() (*models.SessionMarker, *auth.SessionCookies, error) {
	if m.IssueFunc == nil {
		return &models.SessionMarker{ID: "marker"}, &auth.SessionCookies{Token: "tok", IssuedAt: "1"}, nil
	}
	return m.IssueFunc()
}

func (m *MockSessionIssuer) Check(token, issuedAt string) models.SessionStatus {
	if m.CheckFunc == nil {
		return models.SessionStatus{}
	}
	return m.CheckFunc(token, issuedAt)
}

func (m *MockSessionIssuer) Duration() time.Duration {
	return 24 * time.Hour
}
