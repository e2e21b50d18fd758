package compliance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"indialaw-go/pkg/llm"
)

func TestTruncateText(t *testing.T) {
	if got := TruncateText("short", 10); got != "short" {
		t.Errorf("TruncateText() = %q", got)
	}
	got := TruncateText("abcdefghij", 4)
	if got != "abcd"+TruncationMarker {
		t.Errorf("TruncateText() = %q", got)
	}
	if got := TruncateText("exact", 5); got != "exact" {
		t.Errorf("TruncateText() at boundary = %q", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(Input{
		Text:                "CONTRACT BODY",
		ReferencedDocuments: []string{"GCC", "Safety Manual"},
		KnowledgeContext:    []string{"CGST Act s.31", "DPDP Act s.6"},
	})
	for _, want := range []string{"CONTRACT BODY", "- GCC\n", "- Safety Manual\n", "CGST Act s.31\n\n---\n\nDPDP Act s.6", `"indiaLawScore"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	empty := BuildPrompt(Input{Text: "x"})
	if !strings.Contains(empty, "None detected") || !strings.Contains(empty, "No additional context available") {
		t.Error("prompt should mark empty references and knowledge context")
	}
}

type scriptedLLM struct {
	reply  string
	err    error
	prompt string
}

func (s *scriptedLLM) Generate(ctx context.Context, messages []llm.Message, gen llm.GenerationParams) (string, error) {
	s.prompt = messages[len(messages)-1].Content
	return s.reply, s.err
}

func (s *scriptedLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, gen llm.GenerationParams, onChunk llm.ChunkHandler) error {
	return errors.New("not used")
}

func TestAnalyzer_TruncatesAndParses(t *testing.T) {
	fake := &scriptedLLM{reply: validOutput}
	a := NewAnalyzer(fake, llm.GenerationParams{Temperature: 0.1, MaxTokens: 8192}, 5)

	res, err := a.Analyze(context.Background(), Input{Text: "0123456789"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Risks) != 3 {
		t.Errorf("len(Risks) = %d", len(res.Risks))
	}
	if !strings.Contains(fake.prompt, "01234"+TruncationMarker) || strings.Contains(fake.prompt, "56789") {
		t.Error("document text was not truncated in the prompt")
	}
}

func TestAnalyzer_Errors(t *testing.T) {
	_, err := NewAnalyzer(&scriptedLLM{err: errors.New("quota")}, llm.GenerationParams{}, 100).Analyze(context.Background(), Input{Text: "x"})
	if err == nil {
		t.Fatal("expected model error")
	}

	_, err = NewAnalyzer(&scriptedLLM{reply: "sorry"}, llm.GenerationParams{}, 100).Analyze(context.Background(), Input{Text: "x"})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}
