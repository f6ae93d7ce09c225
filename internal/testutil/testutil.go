// Package testutil provides mocks and helpers shared by pipeline tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of exchange.Client.
type MockClient struct {
	mock.Mock
}

// Exchange mocks the Exchange method.
func (m *MockClient) Exchange(ctx context.Context, v int64) (int64, error) {
	args := m.Called(ctx, v)
	if fn, ok := args.Get(0).(func(context.Context, int64) int64); ok {
		return fn(ctx, v), args.Error(1)
	}
	return args.Get(0).(int64), args.Error(1)
}

// Close mocks the Close method.
func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// NewEchoClient creates a mock client that echoes every value by default.
// Expectations added afterwards for specific values take precedence.
func NewEchoClient(t *testing.T) *MockClient {
	t.Helper()
	m := new(MockClient)

	m.On("Close").Return(nil).Maybe()
	return m
}

// EchoAny registers the default echo behavior. Call it after any specific
// expectations, since testify matches expectations in registration order.
func (m *MockClient) EchoAny() *MockClient {
	m.On("Exchange", mock.Anything, mock.Anything).
		Return(func(_ context.Context, v int64) int64 { return v }, nil).
		Maybe()
	return m
}

// WaitOrFail fails the test when done is not closed within d.
func WaitOrFail(t *testing.T, done <-chan struct{}, d time.Duration, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not finish within %s", what, d)
	}
}

// StaysBlocked fails the test when done is closed within d.
func StaysBlocked(t *testing.T, done <-chan struct{}, d time.Duration, what string) {
	t.Helper()
	select {
	case <-done:
		t.Fatalf("%s finished, expected it to stay blocked", what)
	case <-time.After(d):
	}
}
