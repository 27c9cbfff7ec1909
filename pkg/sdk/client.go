package kfsearch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kfsearch/internal/app"
	"github.com/kailas-cloud/kfsearch/internal/config"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/result"
)

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (result.Response, error)
	Models() []string
}

// Client is the kfsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	searchSvc searchUseCase
	healthSvc healthUseCase
	limits    request.Limits
	closeFn   func()
	obs       *observer
}

// New loads configuration, connects to every configured backend and wires
// the search pipeline. The provided context bounds the initial connections.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{env: "local"}
	for _, o := range opts {
		o.apply(cfg)
	}

	appCfg, err := loadConfig(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	a, err := app.Build(ctx, &appCfg, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("kfsearch: %w", err)
	}

	return wireClient(a.Search, a.Health, limitsFrom(&appCfg), a.Close, obs), nil
}

func loadConfig(cfg *clientConfig) (config.Config, error) {
	var (
		appCfg config.Config
		err    error
	)
	if cfg.configFile != "" {
		appCfg, err = config.LoadFile(cfg.configFile)
	} else {
		appCfg, err = config.Load(cfg.env)
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("kfsearch: %w", err)
	}

	if cfg.framesRoot != "" {
		appCfg.Frames.Root = cfg.framesRoot
	}
	return appCfg, nil
}

func limitsFrom(cfg *config.Config) request.Limits {
	return request.Limits{DefaultK: cfg.Search.DefaultK, MaxK: cfg.Search.MaxK}
}

func wireClient(
	searchSvc searchUseCase,
	healthSvc healthUseCase,
	limits request.Limits,
	closeFn func(),
	obs *observer,
) *Client {
	return &Client{
		searchSvc: searchSvc,
		healthSvc: healthSvc,
		limits:    limits,
		closeFn:   closeFn,
		obs:       obs,
	}
}

// Close releases all backend connections.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Models lists the dense models that WithModel accepts.
func (c *Client) Models() []string {
	return c.searchSvc.Models()
}
