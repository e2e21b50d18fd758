// Package es 提供了与 Elasticsearch 交互的知识库索引与检索功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"indialaw-go/internal/config"
	"indialaw-go/internal/model"
	"indialaw-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client 封装 Elasticsearch 客户端及知识库索引名。
type Client struct {
	es         *elasticsearch.Client
	indexName  string
	dimensions int
}

// NewClient 创建 Elasticsearch 客户端。
func NewClient(esCfg config.ElasticsearchConfig, dimensions int) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{es: client, indexName: esCfg.IndexName, dimensions: dimensions}, nil
}

// EnsureIndex 检查索引是否存在，不存在则按知识库结构创建。
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.indexName}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", c.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"chunk_id": { "type": "keyword" },
				"source_md5": { "type": "keyword" },
				"source_name": { "type": "keyword" },
				"chunk_index": { "type": "integer" },
				"text_content": { "type": "text", "analyzer": "english" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" }
			}
		}
	}`, c.dimensions)

	res, err = c.es.Indices.Create(
		c.indexName,
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", c.indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", c.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}
	log.Infof("索引 '%s' 创建成功", c.indexName)
	return nil
}

// IndexChunk 将单个知识库分块索引到 Elasticsearch。
func (c *Client) IndexChunk(ctx context.Context, chunk model.KnowledgeChunk) error {
	docBytes, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      c.indexName,
		DocumentID: chunk.ChunkID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index knowledge chunk")
	}
	return nil
}

// BuildSearchQuery 构造 kNN 召回加 BM25 重排的混合检索语句，vector 为空时退化为纯关键词检索。
func BuildSearchQuery(query string, vector []float32, topK int) map[string]interface{} {
	recallK := topK * 30
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"text_content": query,
			},
		},
		"_source": []string{"source_name", "text_content"},
		"size":    topK,
	}
	if len(vector) == 0 {
		return q
	}
	q["knn"] = map[string]interface{}{
		"field":          "vector",
		"query_vector":   vector,
		"k":              recallK,
		"num_candidates": recallK,
	}
	q["rescore"] = map[string]interface{}{
		"window_size": recallK,
		"query": map[string]interface{}{
			"rescore_query": map[string]interface{}{
				"match": map[string]interface{}{
					"text_content": map[string]interface{}{
						"query": query,
					},
				},
			},
			"query_weight":         0.2,
			"rescore_query_weight": 1.0,
		},
	}
	return q
}

// Search 在知识库中检索与 query 最相关的 topK 个分块。
func (c *Client) Search(ctx context.Context, query string, vector []float32, topK int) ([]model.KnowledgeHit, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(BuildSearchQuery(query, vector, topK)); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.indexName),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch returned an error: %s %s", res.Status(), string(body))
	}
	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) ([]model.KnowledgeHit, error) {
	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.KnowledgeChunk `json:"_source"`
				Score  float64              `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}
	hits := make([]model.KnowledgeHit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		hits = append(hits, model.KnowledgeHit{
			SourceName: h.Source.SourceName,
			Text:       h.Source.TextContent,
			Score:      h.Score,
		})
	}
	return hits, nil
}
