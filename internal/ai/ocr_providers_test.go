package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bosocmputer/ocr_answer_compare/internal/common"
)

func TestOCRSpaceProvider_ExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("apikey"); got != "k-123" {
			t.Errorf("apikey = %q", got)
		}
		if got := r.FormValue("language"); got != "eng" {
			t.Errorf("language = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		defer file.Close()
		if header.Filename != "image.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "png-bytes" {
			t.Errorf("file content = %q", data)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ParsedResults":[{"ParsedText":"What is 2+2?\r\nA. 3\r\nB. 4","FileParseExitCode":1}],"OCRExitCode":1,"IsErroredOnProcessing":false}`)
	}))
	defer srv.Close()

	p := NewOCRSpaceProvider("k-123", srv.URL, "eng")
	result, err := p.ExtractText(context.Background(), []byte("png-bytes"), "image/png", common.NewRequestContext("image"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.HasPrefix(result.RawText, "What is 2+2?") {
		t.Errorf("raw text = %q", result.RawText)
	}
	if result.Provider != "ocrspace" || result.TextLength != len([]rune(result.RawText)) {
		t.Errorf("result = %+v", result)
	}
}

func TestOCRSpaceProvider_ErrorsAndEmpty(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  string
		wantText string
	}{
		{
			name:    "errored on processing with list message",
			status:  http.StatusOK,
			body:    `{"IsErroredOnProcessing":true,"ErrorMessage":["Unable to recognize the file type"]}`,
			wantErr: "Unable to recognize the file type",
		},
		{
			name:    "errored on processing with string message",
			status:  http.StatusOK,
			body:    `{"IsErroredOnProcessing":true,"ErrorMessage":"Invalid API key"}`,
			wantErr: "Invalid API key",
		},
		{
			name:     "no parsed results",
			status:   http.StatusOK,
			body:     `{"ParsedResults":[],"IsErroredOnProcessing":false}`,
			wantText: "",
		},
		{
			name:    "http failure",
			status:  http.StatusForbidden,
			body:    `forbidden`,
			wantErr: CategoryForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p := NewOCRSpaceProvider("key", srv.URL, "eng")
			result, err := p.ExtractText(context.Background(), []byte("x"), "image/jpeg", common.NewRequestContext("image"))

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.RawText != tt.wantText {
				t.Errorf("raw text = %q, want %q", result.RawText, tt.wantText)
			}
		})
	}
}

func TestMistralProvider_ExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer m-key" {
			t.Errorf("authorization = %q", got)
		}
		var req mistralOCRRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Document.Type != "image_url" || !strings.HasPrefix(req.Document.ImageURL, "data:image/png;base64,") {
			t.Errorf("document = %+v", req.Document)
		}
		io.WriteString(w, `{"model":"mistral-ocr-latest","pages":[{"index":0,"markdown":"page one"},{"index":1,"markdown":"page two"}],"usage_info":{"pages_processed":2}}`)
	}))
	defer srv.Close()

	p := NewMistralProvider("m-key", "mistral-ocr-latest")
	p.endpoint = srv.URL

	result, err := p.ExtractText(context.Background(), []byte("img"), "image/png", common.NewRequestContext("image"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if result.RawText != "page one\n\npage two" {
		t.Errorf("raw text = %q", result.RawText)
	}
	if result.Tokens == nil || result.Tokens.TotalTokens != 2 {
		t.Errorf("tokens = %+v", result.Tokens)
	}
}

func TestMistralProvider_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	p := NewMistralProvider("m-key", "mistral-ocr-latest")
	p.endpoint = srv.URL

	_, err := p.ExtractText(context.Background(), []byte("img"), "image/png", common.NewRequestContext("image"))
	providerErr := CategorizeError("mistral", err)
	if providerErr.Category != CategoryRateLimit || providerErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("error = %+v", providerErr)
	}
}
