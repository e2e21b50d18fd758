package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"indialaw-go/pkg/llm"
	"indialaw-go/pkg/storage"
	"indialaw-go/pkg/tasks"
)

// MemoryStore 是 storage.Store 的内存实现。
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutErr  error
}

var _ storage.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore { return &MemoryStore{Objects: map[string][]byte{}} }

func (s *MemoryStore) Put(_ context.Context, objectName string, r io.Reader, _ int64, _ string) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[objectName] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, objectName string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectName)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Remove(_ context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, objectName)
	return nil
}

func (s *MemoryStore) PresignedURL(_ context.Context, objectName string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("http://blob.local/%s?expiry=%d", objectName, int(expiry.Seconds())), nil
}

// Has 判断对象是否存在。
func (s *MemoryStore) Has(objectName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[objectName]
	return ok
}

// Queue 记录投递的任务。
type Queue struct {
	mu   sync.Mutex
	Jobs []tasks.DocumentJob
	Err  error
}

var _ tasks.Queue = (*Queue)(nil)

func (q *Queue) Enqueue(_ context.Context, job tasks.DocumentJob) error {
	if q.Err != nil {
		return q.Err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Jobs = append(q.Jobs, job)
	return nil
}

// LLM 是 llm.Client 的脚本化实现。
type LLM struct {
	mu sync.Mutex
	// Response 是 Generate 的返回值
	Response string
	// Chunks 按顺序交给流式回调
	Chunks      []string
	Err         error
	StreamErr   error
	GenerateFn  func(messages []llm.Message) (string, error)
	Calls       [][]llm.Message
	StreamCalls [][]llm.Message
}

var _ llm.Client = (*LLM)(nil)

func (f *LLM) Generate(_ context.Context, messages []llm.Message, _ llm.GenerationParams) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, messages)
	f.mu.Unlock()
	if f.GenerateFn != nil {
		return f.GenerateFn(messages)
	}
	return f.Response, f.Err
}

func (f *LLM) StreamChatMessages(ctx context.Context, messages []llm.Message, _ llm.GenerationParams, onChunk llm.ChunkHandler) error {
	f.mu.Lock()
	f.StreamCalls = append(f.StreamCalls, messages)
	f.mu.Unlock()
	for _, c := range f.Chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return f.StreamErr
}
