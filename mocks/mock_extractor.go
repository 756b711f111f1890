package mocks

import (
	"github.com/stretchr/testify/mock"

	"docextract/internal/parser"
)

// MockExtractor is a mock implementation of service.Extractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Run(in parser.Input) (*parser.Outcome, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parser.Outcome), args.Error(1)
}

func (m *MockExtractor) Degrade(in parser.Input) (*parser.Outcome, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parser.Outcome), args.Error(1)
}
