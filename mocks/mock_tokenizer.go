package mocks

import (
	"github.com/stretchr/testify/mock"

	"docextract/internal/domain"
)

// MockTokenizer is a mock implementation of port.Tokenizer.
type MockTokenizer struct {
	mock.Mock
}

func (m *MockTokenizer) Tokenize(data []byte, contentType string) (*domain.Document, error) {
	args := m.Called(data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}
