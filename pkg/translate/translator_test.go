package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"indialaw-go/pkg/llm"
)

type fakeDetector struct {
	lang string
	err  error
}

func (f fakeDetector) DetectLanguage(ctx context.Context, text string) (string, error) {
	return f.lang, f.err
}

type fakeLLM struct {
	reply    string
	err      error
	messages []llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llm.Message, gen llm.GenerationParams) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

func (f *fakeLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, gen llm.GenerationParams, onChunk llm.ChunkHandler) error {
	return errors.New("not used")
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		detector Detector
		text     string
		want     string
	}{
		{"devanagari", nil, "यह अनुबंध", "hi"},
		{"tamil", nil, "ஒப்பந்தம்", "ta"},
		{"bengali", nil, "চুক্তি", "bn"},
		{"telugu", nil, "ఒప్పందం", "te"},
		{"detector", fakeDetector{lang: "FR"}, "le contrat", "fr"},
		{"detector error", fakeDetector{err: errors.New("down")}, "contract", "en"},
		{"no detector", nil, "contract", "en"},
		{"empty", fakeDetector{lang: "de"}, "  ", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranslator(tt.detector, &fakeLLM{}, llm.GenerationParams{})
			if got := tr.DetectLanguage(context.Background(), tt.text); got != tt.want {
				t.Errorf("DetectLanguage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslate_DefaultLanguageIsPassthrough(t *testing.T) {
	fake := &fakeLLM{reply: "should not be used"}
	tr := NewTranslator(nil, fake, llm.GenerationParams{})
	got, err := tr.Translate(context.Background(), "GST applies", "en")
	if err != nil || got != "GST applies" {
		t.Fatalf("Translate() = %q, %v", got, err)
	}
	if fake.messages != nil {
		t.Error("model must not be called for the default language")
	}
}

func TestTranslate_AppliesGlossary(t *testing.T) {
	fake := &fakeLLM{reply: "  इस अनुबंध पर gst और Reverse Charge Mechanism लागू है  "}
	tr := NewTranslator(nil, fake, llm.GenerationParams{})
	got, err := tr.Translate(context.Background(), "GST and RCM apply", "hi")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	want := "इस अनुबंध पर जीएसटी और रिवर्स चार्ज मैकेनिज्म लागू है"
	if got != want {
		t.Errorf("Translate() = %q, want %q", got, want)
	}
	if !strings.Contains(fake.messages[0].Content, "Hindi") {
		t.Errorf("system prompt should name the target language: %q", fake.messages[0].Content)
	}
}

func TestTranslate_Error(t *testing.T) {
	tr := NewTranslator(nil, &fakeLLM{err: errors.New("quota")}, llm.GenerationParams{})
	if _, err := tr.Translate(context.Background(), "text", "ta"); err == nil {
		t.Fatal("expected error")
	}
}
