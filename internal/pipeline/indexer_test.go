package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"indialaw-go/internal/config"
	"indialaw-go/internal/model"
	"indialaw-go/internal/testutil"
)

type fakeTextSource struct {
	text  string
	calls int
}

func (f *fakeTextSource) ExtractText(_ context.Context, r io.Reader, _ string) (string, error) {
	f.calls++
	if f.text != "" {
		return f.text, nil
	}
	b, err := io.ReadAll(r)
	return string(b), err
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeChunkIndex struct{ chunks []model.KnowledgeChunk }

func (f *fakeChunkIndex) IndexChunk(_ context.Context, c model.KnowledgeChunk) error {
	f.chunks = append(f.chunks, c)
	return nil
}

func newIndexer(src *fakeTextSource, emb *fakeEmbedder) (*KnowledgeIndexer, *fakeChunkIndex, *testutil.KnowledgeSourceRepo) {
	idx := &fakeChunkIndex{}
	sources := testutil.NewKnowledgeSourceRepo()
	k := NewKnowledgeIndexer(src, emb, idx, sources, "embed-v1", config.KnowledgeConfig{ChunkSize: 10, ChunkOverlap: 2})
	return k, idx, sources
}

func TestIndexFile_ChunksAndIsIdempotent(t *testing.T) {
	src := &fakeTextSource{text: strings.Repeat("a", 25)}
	k, idx, sources := newIndexer(src, &fakeEmbedder{})

	n, err := k.IndexFile(context.Background(), "gst.txt", []byte("raw"))
	if err != nil {
		t.Fatalf("IndexFile() error = %v", err)
	}
	// 步长 8：0-10, 8-18, 16-25
	if n != 3 || len(idx.chunks) != 3 {
		t.Fatalf("chunks = %d/%d, want 3", n, len(idx.chunks))
	}
	if idx.chunks[2].ChunkIndex != 2 || idx.chunks[0].SourceName != "gst.txt" || idx.chunks[0].ModelVersion != "embed-v1" {
		t.Errorf("chunk = %+v", idx.chunks[0])
	}
	if len(sources.Sources) != 1 {
		t.Error("source must be recorded")
	}

	n, err = k.IndexFile(context.Background(), "gst-copy.txt", []byte("raw"))
	if err != nil || n != 3 {
		t.Fatalf("second IndexFile() = %d, %v", n, err)
	}
	if src.calls != 1 || len(idx.chunks) != 3 {
		t.Error("identical content must not be indexed twice")
	}
}

func TestIndexFile_Errors(t *testing.T) {
	k, _, sources := newIndexer(&fakeTextSource{}, &fakeEmbedder{})
	if _, err := k.IndexFile(context.Background(), "empty.txt", nil); !errors.Is(err, model.ErrValidation) {
		t.Errorf("empty file error = %v", err)
	}
	if _, err := k.IndexFile(context.Background(), "blank.txt", []byte("   ")); !errors.Is(err, model.ErrValidation) {
		t.Errorf("blank text error = %v", err)
	}

	k, _, sources = newIndexer(&fakeTextSource{}, &fakeEmbedder{err: errors.New("quota")})
	if _, err := k.IndexFile(context.Background(), "a.txt", []byte("some text")); err == nil {
		t.Error("embedding failure must be returned")
	}
	if len(sources.Sources) != 0 {
		t.Error("failed import must not be recorded")
	}
}

func TestSeedDirectory(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{"a.txt": "alpha", "b.txt": "beta"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	k, idx, sources := newIndexer(&fakeTextSource{}, &fakeEmbedder{})
	k.SeedDirectory(context.Background(), dir)
	if len(sources.Sources) != 2 || len(idx.chunks) != 2 {
		t.Errorf("sources = %d, chunks = %d", len(sources.Sources), len(idx.chunks))
	}

	k.SeedDirectory(context.Background(), filepath.Join(dir, "missing"))
}

func TestSplitText(t *testing.T) {
	if got := splitText("", 10, 2); got != nil {
		t.Errorf("empty text = %v", got)
	}
	got := splitText("héllo wörld", 4, 0)
	if len(got) != 3 || got[0] != "héll" {
		t.Errorf("splitText = %q", got)
	}
	// 重叠不小于块大小时退化为不重叠切分
	if got := splitText("abcdef", 2, 5); len(got) != 3 {
		t.Errorf("invalid overlap = %q", got)
	}
}
