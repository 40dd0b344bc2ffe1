package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rychle-ryce/rychle-ryce-api/config"
	"github.com/stretchr/testify/assert"
)

// newCompletionServer fakes the chat completions endpoint with a fixed reply
func newCompletionServer(t *testing.T, reply string, status int) (*httptest.Server, *chatRequest) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": reply}},
			},
		})
	}))
	return server, &captured
}

func newTestEstimator(baseURL string) *OpenAIEstimationService {
	return NewOpenAIEstimationService(&config.Config{
		OpenAIAPIKey:  "test-api-key",
		OpenAIModel:   "gpt-4o-mini",
		OpenAIBaseURL: baseURL,
	})
}

func TestEstimatePrice(t *testing.T) {
	server, captured := newCompletionServer(t, "900", http.StatusOK)
	defer server.Close()

	price, err := newTestEstimator(server.URL).EstimatePrice(context.Background(),
		"Mow the lawn", "Overgrown lawn")

	assert.NoError(t, err)
	assert.Equal(t, 900.0, price)
	assert.Equal(t, "gpt-4o-mini", captured.Model)
}

func TestEstimatePrice_ExtractsNumberFromNoisyReply(t *testing.T) {
	server, _ := newCompletionServer(t, "I would estimate around 1250.50 CZK for this job.", http.StatusOK)
	defer server.Close()

	price, err := newTestEstimator(server.URL).EstimatePrice(context.Background(), "Trim hedge", "")

	assert.NoError(t, err)
	assert.Equal(t, 1250.50, price)
}

func TestEstimatePrice_NoNumberInReply(t *testing.T) {
	server, _ := newCompletionServer(t, "I cannot estimate that.", http.StatusOK)
	defer server.Close()

	_, err := newTestEstimator(server.URL).EstimatePrice(context.Background(), "Trim hedge", "")
	assert.Error(t, err)
}

func TestEstimatePrice_ServerError(t *testing.T) {
	server, _ := newCompletionServer(t, "", http.StatusInternalServerError)
	defer server.Close()

	_, err := newTestEstimator(server.URL).EstimatePrice(context.Background(), "Trim hedge", "")
	assert.Error(t, err)
}

func TestAnalyzeImage(t *testing.T) {
	server, captured := newCompletionServer(t, "Overgrown lawn, needs mowing", http.StatusOK)
	defer server.Close()

	analysis, err := newTestEstimator(server.URL).AnalyzeImage(context.Background(),
		[]byte("fake jpeg content"), "image/jpeg")

	assert.NoError(t, err)
	assert.Equal(t, "Overgrown lawn, needs mowing", analysis)
	assert.Len(t, captured.Messages, 1, "the photo travels inline in a single message")
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		reply   string
		want    float64
		wantErr bool
	}{
		{reply: "900", want: 900},
		{reply: "900 CZK", want: 900},
		{reply: "Around 1250.50 crowns", want: 1250.50},
		{reply: "no idea", wantErr: true},
		{reply: "", wantErr: true},
	}

	for _, tt := range tests {
		price, err := extractPrice(tt.reply)
		if tt.wantErr {
			assert.Error(t, err, "reply %q", tt.reply)
			continue
		}
		assert.NoError(t, err, "reply %q", tt.reply)
		assert.Equal(t, tt.want, price, "reply %q", tt.reply)
	}
}
