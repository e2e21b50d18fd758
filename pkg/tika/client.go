// Package tika 提供了一个与 Apache Tika 服务器交互的客户端。
package tika

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"indialaw-go/internal/config"
)

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient 创建一个新的 Tika 客户端实例。
func NewClient(cfg config.TikaConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		serverURL:  strings.TrimRight(cfg.ServerURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ExtractText 自动根据文件后缀推断 MIME 类型，并调用 Tika 提取文本。
func (c *Client) ExtractText(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	body, err := c.put(ctx, "/tika", fileReader, detectMimeType(fileName), "text/plain")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Metadata 调用 /meta 返回文档元数据。Tika 对多值字段返回数组，这里统一保留原始 JSON 值。
func (c *Client) Metadata(ctx context.Context, fileReader io.Reader, fileName string) (map[string]interface{}, error) {
	body, err := c.put(ctx, "/meta", fileReader, detectMimeType(fileName), "application/json")
	if err != nil {
		return nil, err
	}
	meta := make(map[string]interface{})
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("解析 Tika 元数据失败: %w", err)
	}
	return meta, nil
}

// DetectLanguage 调用 /language/string 返回 ISO 639-1 语言代码。
func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	body, err := c.put(ctx, "/language/string", strings.NewReader(text), "text/plain; charset=utf-8", "text/plain")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) put(ctx context.Context, path string, body io.Reader, contentType, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用 Tika 失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 Tika 响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Tika 返回错误 [%d]: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// detectMimeType 根据文件扩展名判断 Content-Type
func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
