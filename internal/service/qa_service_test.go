package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"indialaw-go/internal/config"
	"indialaw-go/internal/model"
	"indialaw-go/internal/testutil"
	"indialaw-go/pkg/llm"
)

type qaFixture struct {
	docs       *testutil.DocumentRepo
	analyses   *testutil.AnalysisRepo
	qa         *testutil.QARepo
	llm        *testutil.LLM
	translator *fakeTranslator
	searcher   *fakeSearcher
	svc        QAService
}

func newQAFixture(t *testing.T) *qaFixture {
	f := &qaFixture{
		docs:       testutil.NewDocumentRepo(),
		analyses:   testutil.NewAnalysisRepo(),
		qa:         testutil.NewQARepo(),
		llm:        &testutil.LLM{Chunks: []string{"Under ", "the EPF Act, ", "yes."}},
		translator: &fakeTranslator{},
		searcher:   &fakeSearcher{hits: []model.KnowledgeHit{{SourceName: "epf.pdf", Text: "EPF applies"}}},
	}
	seedDocument(t, f.docs, "d1", 1, model.StatusCompleted, time.Now())
	_ = f.docs.SaveText(context.Background(), &model.DocumentText{DocumentID: "d1", UserID: 1, Text: strings.Repeat("x", 50)})
	_ = f.analyses.Create(context.Background(), &model.Analysis{ID: "a1", DocumentID: "d1", UserID: 1, IndiaLawScore: 74})
	f.svc = NewQAService(f.docs, f.analyses, f.qa, f.searcher, f.llm, f.translator,
		llm.GenerationParams{Temperature: 0.3, MaxTokens: 2048}, config.QAConfig{ContextChars: 20, KBTopK: 5})
	return f
}

func TestQAService_AskStreamsInOrderAndPersists(t *testing.T) {
	f := newQAFixture(t)
	sink := &recordingSink{}

	err := f.svc.Ask(context.Background(), AskRequest{DocumentID: "d1", Question: "Is PF required?"}, 1, sink)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if strings.Join(sink.chunks, "|") != "Under |the EPF Act, |yes." {
		t.Errorf("chunks = %q", sink.chunks)
	}
	if len(sink.completed) != 1 || sink.completed[0] != "Under the EPF Act, yes." {
		t.Errorf("completed = %q", sink.completed)
	}

	session, _ := f.qa.GetOrCreate(context.Background(), "d1", 1)
	if len(session.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(session.Messages))
	}
	user, assistant := session.Messages[0], session.Messages[1]
	if user.Role != model.RoleUserMessage || user.Content != "Is PF required?" || user.Seq != 1 {
		t.Errorf("user message = %+v", user)
	}
	if assistant.Role != model.RoleAssistantMessage || assistant.Content != "Under the EPF Act, yes." || assistant.Seq != 2 {
		t.Errorf("assistant message = %+v", assistant)
	}
	if string(assistant.Citations) != `["epf.pdf"]` {
		t.Errorf("citations = %s", assistant.Citations)
	}

	msgs := f.llm.StreamCalls[0]
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "IndiaLaw Score: 74") || !strings.Contains(msgs[0].Content, "[epf.pdf] EPF applies") {
		t.Errorf("system prompt = %q", msgs[0].Content)
	}
	if strings.Contains(msgs[0].Content, strings.Repeat("x", 21)) {
		t.Error("document context must be truncated to the configured length")
	}
	if len(msgs) != 2 {
		t.Errorf("no sessionId: history must not be loaded, got %d messages", len(msgs))
	}
}

func TestQAService_AskWithSessionLoadsHistory(t *testing.T) {
	f := newQAFixture(t)
	session, _ := f.qa.GetOrCreate(context.Background(), "d1", 1)
	_ = f.qa.AppendExchange(context.Background(), session.ID,
		model.ChatMessage{Role: "user", Content: "first?"}, model.ChatMessage{Role: "assistant", Content: "first."})

	if err := f.svc.Ask(context.Background(), AskRequest{DocumentID: "d1", Question: "second?", SessionID: session.ID}, 1, &recordingSink{}); err != nil {
		t.Fatal(err)
	}
	msgs := f.llm.StreamCalls[0]
	if len(msgs) != 4 || msgs[1].Content != "first?" || msgs[2].Content != "first." || msgs[3].Content != "second?" {
		t.Errorf("messages = %+v", msgs)
	}
	if f.qa.MessageCount("d1", 1) != 4 {
		t.Errorf("message count = %d", f.qa.MessageCount("d1", 1))
	}
}

func TestQAService_AskRejectsForeignSession(t *testing.T) {
	f := newQAFixture(t)
	seedDocument(t, f.docs, "d2", 1, model.StatusCompleted, time.Now())
	other, _ := f.qa.GetOrCreate(context.Background(), "d2", 1)

	err := f.svc.Ask(context.Background(), AskRequest{DocumentID: "d1", Question: "q", SessionID: other.ID}, 1, &recordingSink{})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestQAService_AskTranslates(t *testing.T) {
	f := newQAFixture(t)
	f.translator.language = "hi"
	sink := &recordingSink{}

	if err := f.svc.Ask(context.Background(), AskRequest{DocumentID: "d1", Question: "क्या पीएफ आवश्यक है?"}, 1, sink); err != nil {
		t.Fatal(err)
	}
	if sink.completed[0] != "[hi] Under the EPF Act, yes." {
		t.Errorf("completed = %q", sink.completed[0])
	}
	session, _ := f.qa.GetOrCreate(context.Background(), "d1", 1)
	if session.Messages[1].Content != "[hi] Under the EPF Act, yes." || session.Messages[1].Language != "hi" {
		t.Errorf("assistant message = %+v", session.Messages[1])
	}
}

func TestQAService_AskTranslationFailureAborts(t *testing.T) {
	f := newQAFixture(t)
	f.translator.language = "ta"
	f.translator.err = errors.New("translate down")
	sink := &recordingSink{}

	if err := f.svc.Ask(context.Background(), AskRequest{DocumentID: "d1", Question: "q"}, 1, sink); err == nil {
		t.Fatal("expected error")
	}
	if len(sink.completed) != 0 || f.qa.MessageCount("d1", 1) != 0 {
		t.Error("nothing may be completed or persisted")
	}
}

func TestQAService_ClientDisconnectPersistsNothing(t *testing.T) {
	f := newQAFixture(t)
	sink := &recordingSink{failAt: 2}

	err := f.svc.Ask(context.Background(), AskRequest{DocumentID: "d1", Question: "q"}, 1, sink)
	if !errors.Is(err, errClientGone) {
		t.Fatalf("error = %v, want client disconnect", err)
	}
	if len(sink.chunks) != 1 || f.qa.MessageCount("d1", 1) != 0 {
		t.Errorf("chunks = %q, messages = %d", sink.chunks, f.qa.MessageCount("d1", 1))
	}

	sink = &recordingSink{completeErr: errClientGone}
	_ = f.svc.Ask(context.Background(), AskRequest{DocumentID: "d1", Question: "q"}, 1, sink)
	if f.qa.MessageCount("d1", 1) != 0 {
		t.Error("failed completion must not persist the exchange")
	}
}

func TestQAService_AskEmptyAnswerNotPersisted(t *testing.T) {
	f := newQAFixture(t)
	f.llm.Chunks = nil
	sink := &recordingSink{}
	if err := f.svc.Ask(context.Background(), AskRequest{DocumentID: "d1", Question: "q"}, 1, sink); err != nil {
		t.Fatal(err)
	}
	if len(sink.completed) != 1 || f.qa.MessageCount("d1", 1) != 0 {
		t.Error("empty answer completes but is not persisted")
	}
}

func TestQAService_AskErrors(t *testing.T) {
	f := newQAFixture(t)
	seedDocument(t, f.docs, "bare", 1, model.StatusProcessing, time.Now())

	tests := []struct {
		name string
		req  AskRequest
		user uint
		want error
	}{
		{"missing question", AskRequest{DocumentID: "d1"}, 1, model.ErrValidation},
		{"missing document id", AskRequest{Question: "q"}, 1, model.ErrValidation},
		{"unknown document", AskRequest{DocumentID: "zzz", Question: "q"}, 1, model.ErrNotFound},
		{"foreign document", AskRequest{DocumentID: "d1", Question: "q"}, 2, model.ErrAccessDenied},
		{"text not ready", AskRequest{DocumentID: "bare", Question: "q"}, 1, model.ErrNotReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.svc.Ask(context.Background(), tt.req, tt.user, &recordingSink{}); !errors.Is(err, tt.want) {
				t.Errorf("Ask() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(f.llm.StreamCalls) != 0 {
		t.Error("model must not be called for rejected requests")
	}
}

func TestQAService_GetOrCreateSession(t *testing.T) {
	f := newQAFixture(t)
	s1, err := f.svc.GetOrCreateSession(context.Background(), "d1", 1)
	if err != nil {
		t.Fatal(err)
	}
	s2, _ := f.svc.GetOrCreateSession(context.Background(), "d1", 1)
	if s1.ID != s2.ID {
		t.Error("session must be reused")
	}
	if _, err := f.svc.GetOrCreateSession(context.Background(), "d1", 2); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("foreign session error = %v", err)
	}
}
