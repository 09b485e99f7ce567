// Package mocks provides testify mocks for action interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockInjector is a mock implementation of action.Injector.
type MockInjector struct {
	mock.Mock
}

// NewMockInjector creates a MockInjector whose expectations are asserted
// when the test ends.
func NewMockInjector(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockInjector {
	m := &MockInjector{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockInjector) KeySequence(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockInjector) MouseClick(ctx context.Context, times int, rate time.Duration) error {
	args := m.Called(ctx, times, rate)
	return args.Error(0)
}

func (m *MockInjector) MouseMove(ctx context.Context, sensitivity, times int, rate time.Duration) error {
	args := m.Called(ctx, sensitivity, times, rate)
	return args.Error(0)
}

func (m *MockInjector) Text(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}
