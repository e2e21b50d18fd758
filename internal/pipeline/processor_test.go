package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"indialaw-go/internal/config"
	"indialaw-go/internal/model"
	"indialaw-go/internal/testutil"
	"indialaw-go/pkg/compliance"
	"indialaw-go/pkg/extraction"
	"indialaw-go/pkg/tasks"
)

type fakeExtractor struct {
	result *extraction.Result
	err    error
	// cancel 不为空时模拟抽取过程中停机
	cancel context.CancelFunc
}

func (f *fakeExtractor) Extract(ctx context.Context, _ []byte, _ string) (*extraction.Result, error) {
	if f.cancel != nil {
		f.cancel()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

// ctxCheckingDocs 像 gorm 的 WithContext 一样拒绝已取消的 context。
type ctxCheckingDocs struct {
	*testutil.DocumentRepo
}

func (r ctxCheckingDocs) TransitionStatus(ctx context.Context, id string, from []model.DocumentStatus, to model.DocumentStatus, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.DocumentRepo.TransitionStatus(ctx, id, from, to, fields)
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	result *compliance.Result
	err    error
	inputs []compliance.Input
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in compliance.Input) (*compliance.Result, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.result
	return &cp, nil
}

type fakeKnowledge struct {
	hits  []model.KnowledgeHit
	err   error
	query string
}

func (f *fakeKnowledge) Search(_ context.Context, query string, _ int) ([]model.KnowledgeHit, error) {
	f.query = query
	return f.hits, f.err
}

type fakeGuard struct{ released []string }

func (f *fakeGuard) Release(_ context.Context, id string) error {
	f.released = append(f.released, id)
	return nil
}

type fixture struct {
	docs      *testutil.DocumentRepo
	analyses  *testutil.AnalysisRepo
	store     *testutil.MemoryStore
	extractor *fakeExtractor
	analyzer  *fakeAnalyzer
	knowledge *fakeKnowledge
	guard     *fakeGuard
	proc      *Processor
}

func newFixture() *fixture {
	f := &fixture{
		docs:     testutil.NewDocumentRepo(),
		analyses: testutil.NewAnalysisRepo(),
		store:    testutil.NewMemoryStore(),
		extractor: &fakeExtractor{result: &extraction.Result{
			Text:                "This agreement incorporates the General Conditions of Contract.",
			Language:            "en",
			PageCount:           3,
			ReferencedDocuments: []string{"General Conditions of Contract (GCC)"},
		}},
		analyzer: &fakeAnalyzer{result: &compliance.Result{
			IndiaLawScore: 85,
			RiskSummary:   model.RiskSummary{High: 1},
			Risks:         []model.Risk{{ID: "r1", Level: model.LevelHigh, Category: "Labor", Description: "No PF clause"}},
			Citations:     []string{"EPF Act"},
		}},
		knowledge: &fakeKnowledge{hits: []model.KnowledgeHit{{SourceName: "epf.pdf", Text: "EPF applies to 20+ employees"}}},
		guard:     &fakeGuard{},
	}
	f.proc = NewProcessor(f.docs, f.analyses, f.store, f.extractor, f.analyzer, f.knowledge, f.guard,
		config.AnalysisConfig{MaxChars: 100000, KBQueryChars: 10, KBTopK: 5})
	return f
}

func (f *fixture) seed(t *testing.T, status model.DocumentStatus) *model.Document {
	t.Helper()
	doc := &model.Document{ID: "doc-1", UserID: 7, OriginalName: "contract.pdf", StoragePath: "users/7/uploads/1-contract.pdf", Status: status}
	if err := f.docs.Create(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	f.store.Objects[doc.StoragePath] = []byte("%PDF-1.4 fake")
	return doc
}

func (f *fixture) doc(t *testing.T) *model.Document {
	t.Helper()
	d, err := f.docs.FindByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func processJob() tasks.DocumentJob {
	return tasks.DocumentJob{Kind: tasks.KindProcess, DocumentID: "doc-1", UserID: 7}
}

func TestProcess_Success(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusProcessing)

	if err := f.proc.Process(context.Background(), processJob()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	doc := f.doc(t)
	if doc.Status != model.StatusCompleted {
		t.Fatalf("status = %s, want completed", doc.Status)
	}
	if doc.Language != "en" || doc.PageCount != 3 {
		t.Errorf("language/pageCount = %s/%d", doc.Language, doc.PageCount)
	}
	latest, err := f.analyses.Latest(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("no analysis stored: %v", err)
	}
	if doc.AnalysisID != latest.ID || latest.IndiaLawScore != 85 || latest.UserID != 7 {
		t.Errorf("analysis = %+v, doc.AnalysisID = %s", latest, doc.AnalysisID)
	}
	if string(latest.KnowledgeBaseCitations) != `["EPF Act"]` {
		t.Errorf("citations = %s", latest.KnowledgeBaseCitations)
	}

	text, err := f.docs.FindText(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("no document text: %v", err)
	}
	if !strings.Contains(string(text.ReferencedDocuments), "GCC") {
		t.Errorf("referenced documents = %s", text.ReferencedDocuments)
	}

	in := f.analyzer.inputs[0]
	if len(in.ReferencedDocuments) != 1 || len(in.KnowledgeContext) != 1 {
		t.Errorf("analyzer input = %+v", in)
	}
	if f.knowledge.query != "This agree" {
		t.Errorf("knowledge query = %q, want first 10 runes", f.knowledge.query)
	}
}

func TestProcess_ExtractionFailure(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusProcessing)
	f.extractor.err = extraction.ErrEmptyText

	if err := f.proc.Process(context.Background(), processJob()); err == nil {
		t.Fatal("Process() should fail")
	}
	doc := f.doc(t)
	if doc.Status != model.StatusError || doc.ErrorMessage == "" {
		t.Errorf("doc = %+v, want error with message", doc)
	}
	if _, err := f.docs.FindText(context.Background(), "doc-1"); !errors.Is(err, model.ErrNotFound) {
		t.Error("no DocumentText may exist after extraction failure")
	}
	if f.analyses.Count("doc-1") != 0 {
		t.Error("no Analysis may exist after extraction failure")
	}
	if len(f.analyzer.inputs) != 0 {
		t.Error("analysis must not run after extraction failure")
	}
}

func TestProcess_AnalysisFailure(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusProcessing)
	f.analyzer.err = &compliance.ParseError{Reason: "no JSON object in model output"}

	if err := f.proc.Process(context.Background(), processJob()); err == nil {
		t.Fatal("Process() should fail")
	}
	doc := f.doc(t)
	if doc.Status != model.StatusError {
		t.Fatalf("status = %s, want error", doc.Status)
	}
	if !strings.Contains(doc.ErrorMessage, "no JSON object") {
		t.Errorf("errorMessage = %q", doc.ErrorMessage)
	}
	if _, err := f.docs.FindText(context.Background(), "doc-1"); err != nil {
		t.Error("DocumentText should be kept after analysis failure")
	}
}

func TestProcess_KnowledgeFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusProcessing)
	f.knowledge.err = errors.New("es down")

	if err := f.proc.Process(context.Background(), processJob()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if f.doc(t).Status != model.StatusCompleted {
		t.Error("document should complete without knowledge context")
	}
}

func TestProcess_SkipsTerminalDocument(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusCompleted)

	if err := f.proc.Process(context.Background(), processJob()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(f.analyzer.inputs) != 0 {
		t.Error("terminal document must not be processed again")
	}
}

func TestProcess_ResumesExtractedDocument(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusExtracted)
	_ = f.docs.SaveText(context.Background(), &model.DocumentText{DocumentID: "doc-1", UserID: 7, Text: "body"})

	if err := f.proc.Process(context.Background(), processJob()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if f.doc(t).Status != model.StatusCompleted {
		t.Error("extracted document should be completed")
	}
}

func TestProcess_ShutdownStillRecordsFailure(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusProcessing)
	f.proc = NewProcessor(ctxCheckingDocs{f.docs}, f.analyses, f.store, f.extractor, f.analyzer, f.knowledge, f.guard,
		config.AnalysisConfig{MaxChars: 100000, KBQueryChars: 10, KBTopK: 5})

	ctx, cancel := context.WithCancel(context.Background())
	f.extractor.cancel = cancel
	if err := f.proc.Process(ctx, processJob()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() error = %v, want context.Canceled", err)
	}
	if doc := f.doc(t); doc.Status != model.StatusError || doc.ErrorMessage == "" {
		t.Errorf("doc = %+v, want error even after cancellation", doc)
	}
}

func TestProcess_RedeliveredJobOverwritesText(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusProcessing)
	// 上次抽取写入正文后、状态迁移前进程退出
	_ = f.docs.SaveText(context.Background(), &model.DocumentText{DocumentID: "doc-1", UserID: 7, Text: "stale"})

	if err := f.proc.Process(context.Background(), processJob()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if f.doc(t).Status != model.StatusCompleted {
		t.Error("redelivered document should complete")
	}
	text, err := f.docs.FindText(context.Background(), "doc-1")
	if err != nil || !strings.HasPrefix(text.Text, "This agreement") {
		t.Errorf("text = %+v, %v; want fresh extraction", text, err)
	}
}

func reanalyzeJob() tasks.DocumentJob {
	return tasks.DocumentJob{Kind: tasks.KindReanalyze, DocumentID: "doc-1", UserID: 7}
}

func TestReanalyze_ReplacesAnalysis(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusProcessing)
	if err := f.proc.Process(context.Background(), processJob()); err != nil {
		t.Fatal(err)
	}
	first := f.doc(t).AnalysisID

	if err := f.proc.Process(context.Background(), reanalyzeJob()); err != nil {
		t.Fatalf("reanalyze error = %v", err)
	}
	doc := f.doc(t)
	if doc.Status != model.StatusCompleted || doc.AnalysisID == first {
		t.Errorf("doc = %+v, want completed with a new analysis id", doc)
	}
	if f.analyses.Count("doc-1") != 2 {
		t.Errorf("analyses = %d, want 2", f.analyses.Count("doc-1"))
	}
	if len(f.guard.released) != 1 {
		t.Error("guard must be released after reanalysis")
	}
}

func TestReanalyze_FailureKeepsCompleted(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusProcessing)
	if err := f.proc.Process(context.Background(), processJob()); err != nil {
		t.Fatal(err)
	}
	before := f.doc(t)

	f.analyzer.err = errors.New("model unavailable")
	if err := f.proc.Process(context.Background(), reanalyzeJob()); err == nil {
		t.Fatal("reanalyze should fail")
	}
	after := f.doc(t)
	if after.Status != model.StatusCompleted || after.AnalysisID != before.AnalysisID || after.ErrorMessage != "" {
		t.Errorf("doc after failed reanalysis = %+v", after)
	}
	if len(f.guard.released) != 1 {
		t.Error("guard must be released after failed reanalysis")
	}
}

func TestReanalyze_RecoversErrorDocument(t *testing.T) {
	f := newFixture()
	f.seed(t, model.StatusProcessing)
	f.analyzer.err = errors.New("first failure")
	_ = f.proc.Process(context.Background(), processJob())
	if f.doc(t).Status != model.StatusError {
		t.Fatal("precondition: document should be in error")
	}

	f.analyzer.err = errors.New("second failure")
	_ = f.proc.Process(context.Background(), reanalyzeJob())
	doc := f.doc(t)
	if doc.Status != model.StatusError || !strings.Contains(doc.ErrorMessage, "second failure") {
		t.Errorf("doc = %+v, want error with updated message", doc)
	}

	f.analyzer.err = nil
	if err := f.proc.Process(context.Background(), reanalyzeJob()); err != nil {
		t.Fatalf("reanalyze error = %v", err)
	}
	doc = f.doc(t)
	if doc.Status != model.StatusCompleted || doc.ErrorMessage != "" || doc.AnalysisID == "" {
		t.Errorf("doc = %+v, want completed with cleared error", doc)
	}
}

func TestProcess_UnknownKind(t *testing.T) {
	f := newFixture()
	if err := f.proc.Process(context.Background(), tasks.DocumentJob{Kind: "bogus"}); err == nil {
		t.Error("unknown kind should be rejected")
	}
}
