package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	casedomain "github.com/smallbiznis/sanad/internal/caseai/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/verification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completionServer answers every request with content and hands the decoded
// request to inspect.
func completionServer(t *testing.T, content string, inspect func(chatRequest)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		var req chatRequest
		_ = json.Unmarshal(raw["model"], &req.Model)
		_ = json.Unmarshal(raw["max_tokens"], &req.MaxTokens)
		if rf, ok := raw["response_format"]; ok {
			req.ResponseFormat = &responseFormat{}
			_ = json.Unmarshal(rf, req.ResponseFormat)
		}
		if inspect != nil {
			inspect(req)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return NewClient("sk-test", srv.URL, "gpt-4o")
}

func TestExtractBoardingPass(t *testing.T) {
	c := completionServer(t, "Here you go:\n"+`{"flightNumber":"XA123","airline":"Example Air","departureAirport":"RUH",
"arrivalAirport":"JED","scheduledDeparture":"2025-03-01T09:30:00Z","passengerName":"FAISAL","confidence":91.6}`, func(req chatRequest) {
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 1000, req.MaxTokens)
		assert.Nil(t, req.ResponseFormat)
	})

	data, err := c.ExtractBoardingPass(context.Background(), domain.Image{Bytes: []byte("img"), MimeType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "XA123", *data.FlightNumber)
	assert.Equal(t, "RUH", *data.DepartureAirport)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), *data.ScheduledDeparture)
	assert.Equal(t, 92, data.Confidence)
}

func TestExtractBoardingPassUnreadable(t *testing.T) {
	c := completionServer(t, "I cannot read this image.", nil)
	data, err := c.ExtractBoardingPass(context.Background(), domain.Image{Bytes: []byte("img"), MimeType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, domain.BoardingPassData{}, data)
}

func TestClassify(t *testing.T) {
	c := completionServer(t, `{"documentType":"receipt","isRelevantToClaim":true,"extractedData":{"amount":"120","currency":"SAR","orderNumber":""},
"verificationNotes":"hotel receipt","confidence":140,"warnings":["date unclear"]}`, nil)

	res, err := c.Classify(context.Background(), domain.Image{Bytes: []byte("img"), MimeType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentReceipt, res.DocumentType)
	assert.True(t, res.IsRelevant)
	assert.Equal(t, map[string]any{"amount": "120", "currency": "SAR"}, res.ExtractedFields)
	assert.Equal(t, 100, res.Confidence)
	assert.Equal(t, []string{"date unclear"}, res.Warnings)
}

func TestClassifyUnparseable(t *testing.T) {
	c := completionServer(t, "no idea", nil)
	res, err := c.Classify(context.Background(), domain.Image{Bytes: []byte("img"), MimeType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentUnknown, res.DocumentType)
	assert.Equal(t, 0, res.Confidence)
	assert.NotEmpty(t, res.Warnings)
}

func TestAnalyzeUsesJSONMode(t *testing.T) {
	c := completionServer(t, `{"ai_summary":"ok"}`, func(req chatRequest) {
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		assert.Equal(t, 2000, req.MaxTokens)
	})
	raw, err := c.Analyze(context.Background(), casedomain.CaseContext{Mode: casedomain.ModeAnalyze})
	require.NoError(t, err)
	assert.Equal(t, `{"ai_summary":"ok"}`, raw)
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient("sk-test", srv.URL, "").Analyze(context.Background(), casedomain.CaseContext{Mode: casedomain.ModeDraft})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestCaseSystemPromptFollowup(t *testing.T) {
	delay := 240
	prompt := caseSystemPrompt(casedomain.CaseContext{
		Mode:                casedomain.ModeFollowup,
		Claim:               casedomain.ClaimData{Airline: "Example Air", FlightNumber: "XA123", DelayMinutes: &delay},
		AirlineResponseText: "We offer a voucher.",
	})
	assert.Contains(t, prompt, "Delay: 240 minutes")
	assert.Contains(t, prompt, "We offer a voucher.")
	assert.Contains(t, prompt, "No written evidence.")
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Analyze(context.Background(), casedomain.CaseContext{})
	assert.ErrorIs(t, err, claimdomain.ErrExternalCapability)
	_, err = Unavailable{}.ExtractBoardingPass(context.Background(), domain.Image{})
	assert.ErrorIs(t, err, claimdomain.ErrExternalCapability)
}
