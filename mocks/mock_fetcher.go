package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/weheartit/whi-url-fetcher/internal/domain"
)

// MockFetcher is a mock implementation of the worker's Fetcher
// dependency (internal/worker.Fetcher).
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string, opts domain.Options, observer domain.RedirectObserver) (*domain.Result, error) {
	args := m.Called(ctx, url, opts, observer)

	var result *domain.Result
	if args.Get(0) != nil {
		result = args.Get(0).(*domain.Result)
	}
	return result, args.Error(1)
}
