package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/rychle-ryce/rychle-ryce-api/config"
)

// DefaultEstimatedPrice is used when the estimation collaborator fails or
// returns an unparseable result.
const DefaultEstimatedPrice = 500.0

// EstimationService is the external price-estimation collaborator. Both
// calls are best-effort: AnalyzeImage failure degrades to an error-message
// analysis string and EstimatePrice failure falls back to
// DefaultEstimatedPrice. Neither blocks order creation.
type EstimationService interface {
	// AnalyzeImage describes the garden work visible on the photo
	AnalyzeImage(ctx context.Context, image []byte, contentType string) (string, error)

	// EstimatePrice estimates a price in CZK from the description and the
	// optional image analysis
	EstimatePrice(ctx context.Context, description, analysis string) (float64, error)
}

// OpenAIEstimationService implements EstimationService against the OpenAI
// chat completions API
type OpenAIEstimationService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

var estimationServiceInstance EstimationService

// InitEstimationService initializes the estimation service with the OpenAI backend
func InitEstimationService(cfg *config.Config) EstimationService {
	estimationServiceInstance = NewOpenAIEstimationService(cfg)
	return estimationServiceInstance
}

// GetEstimationService returns the initialized estimation service instance
func GetEstimationService() EstimationService {
	return estimationServiceInstance
}

// SetEstimationService sets the estimation service instance (primarily for testing)
func SetEstimationService(service EstimationService) {
	estimationServiceInstance = service
}

// NewOpenAIEstimationService creates a new OpenAI-backed estimation service
func NewOpenAIEstimationService(cfg *config.Config) *OpenAIEstimationService {
	return &OpenAIEstimationService{
		apiKey:  cfg.OpenAIAPIKey,
		model:   cfg.OpenAIModel,
		baseURL: cfg.OpenAIBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const analyzePrompt = "Analyze this photo of garden work. Describe what you see, " +
	"what kind of work is needed, and estimate the difficulty and duration."

const estimatePromptFormat = "Based on the following job description and image " +
	"analysis, estimate the price in Czech crowns.\n\n" +
	"Job description: %s\nImage analysis: %s\n\n" +
	"Reply with a single number (price in CZK) and no other text. " +
	"Take typical prices for garden work in the Czech Republic into account."

// AnalyzeImage sends the photo to the vision model and returns its textual analysis
func (s *OpenAIEstimationService) AnalyzeImage(ctx context.Context, image []byte, contentType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []map[string]interface{}{
					{"type": "text", "text": analyzePrompt},
					{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
				},
			},
		},
		MaxTokens: 300,
	}

	return s.complete(ctx, req)
}

// EstimatePrice asks the model for a numeric price and extracts the first
// number from its reply
func (s *OpenAIEstimationService) EstimatePrice(ctx context.Context, description, analysis string) (float64, error) {
	if analysis == "" {
		analysis = "No image provided"
	}

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: fmt.Sprintf(estimatePromptFormat, description, analysis),
			},
		},
		MaxTokens: 50,
	}

	reply, err := s.complete(ctx, req)
	if err != nil {
		return 0, err
	}

	return extractPrice(reply)
}

// complete executes one chat completion request and returns the reply text
func (s *OpenAIEstimationService) complete(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call completion endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(envelope.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	return envelope.Choices[0].Message.Content, nil
}

var priceRegexp = regexp.MustCompile(`\d+(\.\d+)?`)

// extractPrice pulls the first number out of a model reply
func extractPrice(reply string) (float64, error) {
	match := priceRegexp.FindString(reply)
	if match == "" {
		return 0, fmt.Errorf("no number found in reply %q", reply)
	}

	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %w", match, err)
	}

	return price, nil
}
