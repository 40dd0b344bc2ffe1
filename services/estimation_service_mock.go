package services

import (
	"context"
	"sync"
)

// MockEstimationService is a mock implementation of EstimationService for
// testing. It returns the configured analysis and price, or the configured
// errors, and records how often each call was made.
type MockEstimationService struct {
	Analysis    string
	Price       float64
	AnalyzeErr  error
	EstimateErr error

	mu            sync.Mutex
	analyzeCalls  int
	estimateCalls int
}

// NewMockEstimationService creates a mock with sensible defaults
func NewMockEstimationService() *MockEstimationService {
	return &MockEstimationService{
		Analysis: "Overgrown lawn, needs mowing and edge trimming",
		Price:    900,
	}
}

// SetAsMockForTesting sets this mock as the global estimation service instance
func (m *MockEstimationService) SetAsMockForTesting() {
	SetEstimationService(m)
}

// AnalyzeImage returns the configured analysis or error
func (m *MockEstimationService) AnalyzeImage(ctx context.Context, image []byte, contentType string) (string, error) {
	m.mu.Lock()
	m.analyzeCalls++
	m.mu.Unlock()

	if m.AnalyzeErr != nil {
		return "", m.AnalyzeErr
	}
	return m.Analysis, nil
}

// EstimatePrice returns the configured price or error
func (m *MockEstimationService) EstimatePrice(ctx context.Context, description, analysis string) (float64, error) {
	m.mu.Lock()
	m.estimateCalls++
	m.mu.Unlock()

	if m.EstimateErr != nil {
		return 0, m.EstimateErr
	}
	return m.Price, nil
}

// AnalyzeCalls returns how many times AnalyzeImage was called
func (m *MockEstimationService) AnalyzeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.analyzeCalls
}

// EstimateCalls returns how many times EstimatePrice was called
func (m *MockEstimationService) EstimateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.estimateCalls
}
