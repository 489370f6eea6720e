package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"LoaDamageMeter/internal/encounter"
)

// Client 遭遇战远端上传客户端
type Client struct {
	url      string
	key      string
	maxRetry uint64
	hc       *http.Client
	log      zerolog.Logger
}

// New 创建上传客户端
func New(url, key string, timeout time.Duration, maxRetry int, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRetry < 0 {
		maxRetry = 0
	}
	return &Client{
		url:      url,
		key:      key,
		maxRetry: uint64(maxRetry),
		hc:       &http.Client{Timeout: timeout},
		log:      log,
	}
}

// uploadRequest 上传请求体：{key, session}
type uploadRequest struct {
	Key     string             `json:"key"`
	Session *encounter.Session `json:"session"`
}

// uploadResponse 上传响应体
type uploadResponse struct {
	ID string `json:"id"`
}

// Upload 上传结算会话，指数退避重试，返回远端分配的归档ID
func (c *Client) Upload(ctx context.Context, session *encounter.Session) (string, error) {
	body, err := json.Marshal(uploadRequest{Key: c.key, Session: session})
	if err != nil {
		return "", fmt.Errorf("marshal upload failed: %w", err)
	}

	var uploadedID string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("upload failed: status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			// 客户端错误重试无意义
			return backoff.Permanent(fmt.Errorf("upload rejected: status %d", resp.StatusCode))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		result := uploadResponse{}
		if err := json.Unmarshal(data, &result); err != nil {
			return backoff.Permanent(fmt.Errorf("decode upload response failed: %w", err))
		}
		uploadedID = result.ID
		return nil
	}

	backOff := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetry)
	if err := backoff.Retry(operation, backoff.WithContext(backOff, ctx)); err != nil {
		return "", err
	}

	c.log.Info().Str("id", uploadedID).Msg("uploaded encounter")
	return uploadedID, nil
}
