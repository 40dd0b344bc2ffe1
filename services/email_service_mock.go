package services

import "sync"

// SentEmail records one delivery attempt made through the mock
type SentEmail struct {
	To    string
	Name  string
	Token string
}

// MockEmailService is a mock implementation of EmailService for testing
type MockEmailService struct {
	SendErr error

	mu   sync.Mutex
	sent []SentEmail
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

// SetAsMockForTesting sets this mock as the global email service instance
func (m *MockEmailService) SetAsMockForTesting() {
	SetEmailService(m)
}

// SendVerificationEmail records the delivery instead of sending anything
func (m *MockEmailService) SendVerificationEmail(toEmail, name, token string) error {
	if m.SendErr != nil {
		return m.SendErr
	}

	m.mu.Lock()
	m.sent = append(m.sent, SentEmail{To: toEmail, Name: name, Token: token})
	m.mu.Unlock()

	return nil
}

// Sent returns a copy of the recorded deliveries
func (m *MockEmailService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}
