package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"telemetry-mdb/internal/mdb"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const upstreamPageSize = 500

// listParametersResponse 上游 /api/mdb/{instance}/parameters 响应
type listParametersResponse struct {
	Parameters        []*mdb.Parameter `json:"parameters"`
	ContinuationToken string           `json:"continuationToken"`
}

// listCommandsResponse 上游 /api/mdb/{instance}/commands 响应
type listCommandsResponse struct {
	Commands          []*mdb.Command `json:"commands"`
	ContinuationToken string         `json:"continuationToken"`
}

// UpstreamClient 上游 MDB REST 客户端
type UpstreamClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewUpstreamClient 创建上游客户端
func NewUpstreamClient(baseURL string, timeout time.Duration, retries int, logger *zap.Logger) *UpstreamClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	return &UpstreamClient{httpClient: client, logger: logger}
}

// FetchSnapshot 拉取实例的全部参数和指令并生成快照
func (c *UpstreamClient) FetchSnapshot(ctx context.Context, instance string) (*mdb.Snapshot, error) {
	params, err := c.fetchParameters(ctx, instance)
	if err != nil {
		return nil, err
	}
	commands, err := c.fetchCommands(ctx, instance)
	if err != nil {
		return nil, err
	}

	snap, err := mdb.NewSnapshot(instance, params, commands)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream mdb for %s: %w", instance, err)
	}

	c.logger.Info("Fetched mdb from upstream",
		zap.String("instance", instance),
		zap.Int("parameter_count", len(params)),
		zap.Int("command_count", len(commands)),
	)
	return snap, nil
}

func (c *UpstreamClient) fetchParameters(ctx context.Context, instance string) ([]*mdb.Parameter, error) {
	var out []*mdb.Parameter
	next := ""
	for {
		var page listParametersResponse
		if err := c.get(ctx, "/api/mdb/"+url.PathEscape(instance)+"/parameters", next, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Parameters...)
		if page.ContinuationToken == "" {
			return out, nil
		}
		if page.ContinuationToken == next {
			c.stalled(instance, "parameters", next)
			return out, nil
		}
		next = page.ContinuationToken
	}
}

func (c *UpstreamClient) fetchCommands(ctx context.Context, instance string) ([]*mdb.Command, error) {
	var out []*mdb.Command
	next := ""
	for {
		var page listCommandsResponse
		if err := c.get(ctx, "/api/mdb/"+url.PathEscape(instance)+"/commands", next, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Commands...)
		if page.ContinuationToken == "" {
			return out, nil
		}
		if page.ContinuationToken == next {
			c.stalled(instance, "commands", next)
			return out, nil
		}
		next = page.ContinuationToken
	}
}

// stalled 上游重复返回同一个续页令牌时停止翻页
func (c *UpstreamClient) stalled(instance, resource, token string) {
	c.logger.Warn("Upstream repeated continuation token, stop paging",
		zap.String("instance", instance),
		zap.String("resource", resource),
		zap.String("token", token),
	)
}

func (c *UpstreamClient) get(ctx context.Context, path, next string, result any) error {
	req := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("details", "true").
		SetQueryParam("limit", fmt.Sprint(upstreamPageSize)).
		SetResult(result)
	if next != "" {
		req.SetQueryParam("next", next)
	}

	resp, err := req.Get(path)
	if err != nil {
		c.logger.Error("Upstream MDB call failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call upstream %s: %w", path, err)
	}
	if resp.IsError() {
		c.logger.Error("Upstream MDB returned error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("upstream %s returned status %d", path, resp.StatusCode())
	}
	return nil
}
