package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koded0214h/MicroServices/mail"
)

type stubProvider struct {
	sent []*mail.Message
	err  error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Send(ctx context.Context, msg *mail.Message) (*mail.Receipt, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.sent = append(p.sent, msg)
	return &mail.Receipt{
		MessageID:  fmt.Sprintf("<%d@test>", len(p.sent)),
		Provider:   p.Name(),
		Recipients: len(msg.To),
		AcceptedAt: time.Now(),
	}, nil
}

const testAPIKey = "test-key"

func newTestAPI(t *testing.T) (*stubProvider, http.Handler) {
	t.Helper()
	provider := &stubProvider{}
	renderer, err := mail.NewRenderer("")
	require.NoError(t, err)
	svc := mail.NewService(provider, renderer, mail.NewMemoryLog(100),
		mail.Recipient{Name: "Service", Address: "noreply@example.com"}, "https://app.example.com")

	server, err := New(svc, ServerOptions{Addr: ":0", APIKey: testAPIKey})
	require.NoError(t, err)
	return provider, server.setupRoutes()
}

func doRequest(t *testing.T, handler http.Handler, method, path, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAuthRequired(t *testing.T) {
	_, handler := newTestAPI(t)

	rr := doRequest(t, handler, "GET", "/api/v1/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, handler, "GET", "/api/v1/stats", "wrong-key", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(t, handler, "GET", "/api/v1/stats", testAPIKey, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSendEmail(t *testing.T) {
	provider, handler := newTestAPI(t)

	body := `{"to":[{"address":"ada@example.com"}],"subject":"Hello","text_body":"hi","category":"transactional"}`
	rr := doRequest(t, handler, "POST", "/api/v1/emails", testAPIKey, body)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var receipt mail.Receipt
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipt))
	assert.NotEmpty(t, receipt.MessageID)
	assert.Equal(t, 1, receipt.Recipients)

	require.Len(t, provider.sent, 1)
	// The configured sender is filled in when the request has no from.
	assert.Equal(t, "noreply@example.com", provider.sent[0].From.Address)
}

func TestSendEmailValidationError(t *testing.T) {
	provider, handler := newTestAPI(t)

	body := `{"to":[{"address":"ada@example.com"}],"subject":"FREE money","text_body":"hi"}`
	rr := doRequest(t, handler, "POST", "/api/v1/emails", testAPIKey, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "spam trigger")
	assert.Empty(t, provider.sent)
}

func TestSendEmailDeliveryFailure(t *testing.T) {
	provider, handler := newTestAPI(t)
	provider.err = &mail.DeliveryError{Err: fmt.Errorf("connection refused"), Permanent: false}

	body := `{"to":[{"address":"ada@example.com"}],"subject":"Hello","text_body":"hi"}`
	rr := doRequest(t, handler, "POST", "/api/v1/emails", testAPIKey, body)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestStatsAndLogs(t *testing.T) {
	_, handler := newTestAPI(t)

	body := `{"to":[{"address":"ada@example.com"}],"subject":"Hello","text_body":"hi"}`
	rr := doRequest(t, handler, "POST", "/api/v1/emails", testAPIKey, body)
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = doRequest(t, handler, "GET", "/api/v1/stats", testAPIKey, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats mail.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.SentTotal)

	rr = doRequest(t, handler, "GET", "/api/v1/logs?limit=10", testAPIKey, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var logsResp struct {
		Logs  []mail.DeliveryRecord `json:"logs"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &logsResp))
	require.Equal(t, 1, logsResp.Count)
	assert.Equal(t, "sent", logsResp.Logs[0].Status)

	rr = doRequest(t, handler, "GET", "/api/v1/logs?limit=bogus", testAPIKey, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOnboardingEndpoints(t *testing.T) {
	provider, handler := newTestAPI(t)

	rr := doRequest(t, handler, "POST", "/api/v1/onboarding/welcome", testAPIKey,
		`{"name":"Ada","address":"ada@example.com"}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	rr = doRequest(t, handler, "POST", "/api/v1/onboarding/verification", testAPIKey,
		`{"name":"Ada","address":"ada@example.com","token":"tok-1"}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	rr = doRequest(t, handler, "POST", "/api/v1/onboarding/invite", testAPIKey,
		`{"name":"Ada","address":"ada@example.com","token":"inv-1","inviter_name":"Grace"}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	require.Len(t, provider.sent, 3)
	assert.Equal(t, mail.CategoryWelcome, provider.sent[0].Category)
	assert.Equal(t, mail.CategoryVerification, provider.sent[1].Category)
	assert.Equal(t, mail.CategoryInvite, provider.sent[2].Category)

	// Missing token is rejected before any send.
	rr = doRequest(t, handler, "POST", "/api/v1/onboarding/verification", testAPIKey,
		`{"name":"Ada","address":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Missing address as well.
	rr = doRequest(t, handler, "POST", "/api/v1/onboarding/welcome", testAPIKey, `{"name":"Ada"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
