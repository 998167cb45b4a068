package presentation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectServlet_ServeHTTP_WhenNotConfigured_ThenRedirectsToHTTPS(t *testing.T) {
	// Arrange
	servlet := NewRedirectServlet(mocks.NewSilentLogger())
	require.NoError(t, servlet.Init(domain.HandlerConfig{}))
	recorder := httptest.NewRecorder()

	// Act
	servlet.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "http://example.com/a/b?c=d", nil))

	// Assert
	assert.Equal(t, http.StatusMovedPermanently, recorder.Code)
	assert.Equal(t, "https://example.com/a/b?c=d", recorder.Header().Get("Location"))
}

func TestRedirectServlet_ServeHTTP_WhenPortGiven_ThenReplacesRequestPort(t *testing.T) {
	// Arrange
	servlet := NewRedirectServlet(mocks.NewSilentLogger())
	require.NoError(t, servlet.Init(domain.HandlerConfig{InitParams: domain.InitParams{
		{Name: RedirectPortParam, Value: "8443"},
		{Name: RedirectPermanentParam, Value: "false"},
	}}))
	recorder := httptest.NewRecorder()

	// Act
	servlet.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "http://example.com:8080/x", nil))

	// Assert
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "https://example.com:8443/x", recorder.Header().Get("Location"))
}

func TestRedirectServlet_ServeHTTP_WhenLocationGiven_ThenKeepsRequestURI(t *testing.T) {
	// Arrange
	servlet := NewRedirectServlet(mocks.NewSilentLogger())
	require.NoError(t, servlet.Init(domain.HandlerConfig{InitParams: domain.InitParams{
		{Name: RedirectLocationParam, Value: "https://new.example.org/"},
	}}))
	recorder := httptest.NewRecorder()

	// Act
	servlet.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "http://old.example.org/page?q=1", nil))

	// Assert
	assert.Equal(t, "https://new.example.org/page?q=1", recorder.Header().Get("Location"))
}

func TestRedirectServlet_Init_WhenPermanentIsNotBoolean_ThenReturnsError(t *testing.T) {
	// Arrange
	servlet := NewRedirectServlet(mocks.NewSilentLogger())

	// Act
	err := servlet.Init(domain.HandlerConfig{InitParams: domain.InitParams{{Name: RedirectPermanentParam, Value: "sometimes"}}})

	// Assert
	assert.ErrorContains(t, err, "'permanent'")
}

func TestRedirectServlet_Init_WhenPortIsInvalid_ThenReturnsError(t *testing.T) {
	// Arrange
	servlet := NewRedirectServlet(mocks.NewSilentLogger())

	// Act
	err := servlet.Init(domain.HandlerConfig{InitParams: domain.InitParams{{Name: RedirectPortParam, Value: "99999"}}})

	// Assert
	assert.Error(t, err)
}

func TestHealthServlet_ServeHTTP_WhenGet_ThenReportsUp(t *testing.T) {
	// Arrange
	servlet := NewHealthServlet()
	require.NoError(t, servlet.Init(domain.HandlerConfig{ContextPath: "/api"}))
	recorder := httptest.NewRecorder()

	// Act
	servlet.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	// Assert
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	var health Health
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "UP", health.Status)
	assert.Equal(t, "/api", health.Context)
}

func TestHealthServlet_ServeHTTP_WhenPost_ThenReturnsMethodNotAllowed(t *testing.T) {
	// Arrange
	servlet := NewHealthServlet()
	recorder := httptest.NewRecorder()

	// Act
	servlet.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/health", nil))

	// Assert
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	assert.Equal(t, "GET, HEAD", recorder.Header().Get("Allow"))
}
