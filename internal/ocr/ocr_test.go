package ocr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"meal-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
)

type recorder struct {
	calls []shared.CallMeta
}

func (r *recorder) RecordCall(_ context.Context, meta shared.CallMeta) {
	r.calls = append(r.calls, meta)
}

func TestSpaceClientRecognize(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("failed to parse multipart form: %v", err)
				return
			}
			if r.FormValue("apikey") != "key" || r.FormValue("language") != "eng" {
				t.Errorf("unexpected form values: %v", r.MultipartForm.Value)
			}
			f, hdr, err := r.FormFile("file")
			if err != nil {
				t.Errorf("missing file part: %v", err)
				return
			}
			data, _ := io.ReadAll(f)
			if string(data) != "jpeg-bytes" || hdr.Filename != "photo.jpg" {
				t.Errorf("unexpected file %q (%s)", data, hdr.Filename)
			}
			w.Write([]byte(`{"ParsedResults":[{"ParsedText":"Pancakes\r\n2 cups flour\r\n"}],"IsErroredOnProcessing":false}`))
		}))
		defer ts.Close()

		rec := &recorder{}
		c := NewSpaceClient("key", WithEndpoint(ts.URL), WithRecorder(rec))
		text, err := c.Recognize(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
		if err != nil {
			t.Fatalf("Recognize failed: %v", err)
		}
		if !strings.HasPrefix(text, "Pancakes") {
			t.Errorf("unexpected text %q", text)
		}
		if len(rec.calls) != 1 || !rec.calls[0].OK() || rec.calls[0].Collaborator != "ocr.space" {
			t.Errorf("unexpected recorded calls %+v", rec.calls)
		}
	})

	t.Run("NoText", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ParsedResults":[{"ParsedText":"  "}]}`))
		}))
		defer ts.Close()

		rec := &recorder{}
		c := NewSpaceClient("key", WithEndpoint(ts.URL), WithRecorder(rec))
		if _, err := c.Recognize(context.Background(), []byte("x"), "image/png"); !errors.Is(err, ErrNoText) {
			t.Errorf("expected ErrNoText, got %v", err)
		}
		if len(rec.calls) != 1 || rec.calls[0].OK() {
			t.Errorf("failure should be recorded: %+v", rec.calls)
		}
	})

	t.Run("ProcessingError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"IsErroredOnProcessing":true,"ErrorMessage":["File too large"]}`))
		}))
		defer ts.Close()

		c := NewSpaceClient("key", WithEndpoint(ts.URL))
		_, err := c.Recognize(context.Background(), []byte("x"), "")
		if err == nil || !strings.Contains(err.Error(), "File too large") {
			t.Errorf("expected processing error, got %v", err)
		}
	})

	t.Run("HTTPError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad key", http.StatusForbidden)
		}))
		defer ts.Close()

		c := NewSpaceClient("key", WithEndpoint(ts.URL))
		if _, err := c.Recognize(context.Background(), []byte("x"), ""); err == nil || !strings.Contains(err.Error(), "403") {
			t.Errorf("expected status error, got %v", err)
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}))
		defer ts.Close()

		c := NewSpaceClient("key", WithEndpoint(ts.URL))
		if _, err := c.Recognize(context.Background(), []byte("x"), ""); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("EmptyImage", func(t *testing.T) {
		c := NewSpaceClient("key", WithEndpoint("http://127.0.0.1:1"))
		if _, err := c.Recognize(context.Background(), nil, ""); err == nil {
			t.Error("expected error for empty image")
		}
	})
}

func TestCandidateText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Tea\n"), genai.Text("1 cup water")}},
		}},
	}
	if got := candidateText(resp); got != "Tea\n1 cup water" {
		t.Errorf("unexpected text %q", got)
	}
	if got := candidateText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestImageFormat(t *testing.T) {
	tests := map[string]string{"image/png": "png", "image/jpeg": "jpeg", "": "jpeg", "application/pdf": "jpeg"}
	for in, want := range tests {
		if got := imageFormat(in); got != want {
			t.Errorf("imageFormat(%q) = %q, want %q", in, got, want)
		}
	}
}
