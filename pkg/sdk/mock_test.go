package kfsearch

import (
	"context"

	"github.com/kailas-cloud/kfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/kfsearch/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) (result.Response, error)
	models   []string
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) (result.Response, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSearchUC) Models() []string { return m.models }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

func newTestClient(search *mockSearchUC, obs *observer) *Client {
	return wireClient(search, &mockHealthUC{}, request.DefaultLimits(), nil, obs)
}
