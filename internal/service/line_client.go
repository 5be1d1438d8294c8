package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Pusher 推送消息传输接口（测试时用 mock 替换）
type Pusher interface {
	PushMessage(ctx context.Context, lineUserID string, texts []string) error
}

// LineTextMessage LINE テキストメッセージ
type LineTextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LinePushRequest LINE Push API 请求
type LinePushRequest struct {
	To       string            `json:"to"`
	Messages []LineTextMessage `json:"messages"`
}

// LineErrorResponse LINE API 错误响应
type LineErrorResponse struct {
	Message string `json:"message"`
}

// LineClient LINE Messaging API 客户端
type LineClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewLineClient 创建 LINE 客户端
func NewLineClient(baseURL, channelToken string, logger *zap.Logger) *LineClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(channelToken)

	return &LineClient{
		httpClient: client,
		logger:     logger,
	}
}

// 确保实现了接口
var _ Pusher = (*LineClient)(nil)

// PushMessage 向单个用户推送文本消息
// LINE 限制单次最多 5 条消息
func (c *LineClient) PushMessage(ctx context.Context, lineUserID string, texts []string) error {
	if lineUserID == "" {
		return fmt.Errorf("line user id is required")
	}
	if len(texts) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	if len(texts) > 5 {
		texts = texts[:5]
	}

	request := LinePushRequest{To: lineUserID}
	for _, t := range texts {
		request.Messages = append(request.Messages, LineTextMessage{Type: "text", Text: t})
	}

	var lineErr LineErrorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetError(&lineErr).
		Post("/v2/bot/message/push")

	if err != nil {
		c.logger.Error("LINE push request failed", zap.Error(err))
		return fmt.Errorf("failed to call LINE push API: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("LINE push API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", lineErr.Message),
		)
		return fmt.Errorf("LINE push API error: status=%d message=%s", resp.StatusCode(), lineErr.Message)
	}
	return nil
}
