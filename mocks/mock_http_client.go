// Package mocks provides testify mocks for the fetcher's ports.
package mocks

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/weheartit/whi-url-fetcher/internal/domain"
)

// MockHTTPClient is a mock implementation of domain.HTTPClient.
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Exchange(ctx context.Context, method domain.Method, url string, headers http.Header, opts domain.Options) (*domain.Exchange, error) {
	args := m.Called(ctx, method, url, headers, opts)

	var ex *domain.Exchange
	if args.Get(0) != nil {
		ex = args.Get(0).(*domain.Exchange)
	}
	return ex, args.Error(1)
}

// MockObserver is a mock implementation of domain.RedirectObserver.
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) OnRedirect(candidateURL string) bool {
	args := m.Called(candidateURL)
	return args.Bool(0)
}
