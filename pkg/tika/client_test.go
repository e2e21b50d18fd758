package tika

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"indialaw-go/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/tika":
			if string(body) == "corrupted" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte("parse failure"))
				return
			}
			_, _ = w.Write([]byte("extracted: " + string(body)))
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"xmpTPg:NPages":"2","Content-Type":"application/pdf"}`))
		case "/language/string":
			_, _ = w.Write([]byte("hi\n"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClient_ExtractText(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := NewClient(config.TikaConfig{ServerURL: srv.URL + "/"})

	text, err := c.ExtractText(context.Background(), strings.NewReader("hello"), "a.pdf")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if text != "extracted: hello" {
		t.Errorf("ExtractText() = %q", text)
	}

	if _, err := c.ExtractText(context.Background(), strings.NewReader("corrupted"), "a.pdf"); err == nil {
		t.Fatal("ExtractText() expected error for non-200 response")
	}
}

func TestClient_MetadataAndLanguage(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := NewClient(config.TikaConfig{ServerURL: srv.URL})

	meta, err := c.Metadata(context.Background(), strings.NewReader("x"), "a.pdf")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta["xmpTPg:NPages"] != "2" {
		t.Errorf("meta pages = %v", meta["xmpTPg:NPages"])
	}

	lang, err := c.DetectLanguage(context.Background(), "नमस्ते")
	if err != nil {
		t.Fatalf("DetectLanguage() error = %v", err)
	}
	if lang != "hi" {
		t.Errorf("DetectLanguage() = %q, want hi", lang)
	}
}

func TestDetectMimeType(t *testing.T) {
	if got := detectMimeType("contract.pdf"); got != "application/pdf" {
		t.Errorf("detectMimeType(pdf) = %q", got)
	}
	if got := detectMimeType("noext"); got != "application/octet-stream" {
		t.Errorf("detectMimeType(noext) = %q", got)
	}
}
