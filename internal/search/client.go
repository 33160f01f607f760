package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/MikePfunk28/intelhub/internal/models"
)

// Client wraps the engine with graceful degradation: when a semantic or
// hybrid request fails for any reason other than request validation, it is
// retried once in keyword mode so the caller still gets results while the
// embedding provider is down.
type Client struct {
	engine *Engine
	logger *zap.Logger
}

// NewClient wraps engine with the keyword fallback.
func NewClient(engine *Engine, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{engine: engine, logger: logger}
}

// Search runs the request, falling back to keyword mode on semantic or
// hybrid failure. The original error is propagated only when the fallback
// also fails; fallback responses are marked so callers can tell.
func (c *Client) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	resp, err := c.engine.Search(ctx, req)
	if err == nil {
		return resp, nil
	}
	if IsQueryError(err) || req.Mode == models.ModeKeyword {
		return nil, err
	}

	c.logger.Warn("search degraded to keyword mode",
		zap.String("query", req.Query),
		zap.String("requested_type", string(req.Mode)),
		zap.Error(err))

	fallback := *req
	fallback.Mode = models.ModeKeyword
	resp, fbErr := c.engine.Search(ctx, &fallback)
	if fbErr != nil {
		c.logger.Error("keyword fallback failed", zap.Error(fbErr))
		return nil, err
	}
	resp.Fallback = true
	return resp, nil
}
