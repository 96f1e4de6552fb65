package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/docsense/internal/corpus"
	"github.com/ziadkadry99/docsense/internal/rag"
	"github.com/ziadkadry99/docsense/internal/render"
)

type askCall struct {
	question string
	model    string
	history  []rag.Turn
}

// fakePipeline records calls and returns canned results.
type fakePipeline struct {
	mu        sync.Mutex
	ingest    func(path string) rag.IngestResult
	askErr    error
	answer    string
	asks      []askCall
	deleted   []string
	suggested []string // models passed to Suggest
}

func (f *fakePipeline) Ingest(_ context.Context, path string) rag.IngestResult {
	if f.ingest != nil {
		return f.ingest(path)
	}
	return rag.IngestResult{Filename: filepath.Base(path), Status: rag.StatusSuccess, Chunks: 3}
}

func (f *fakePipeline) Delete(_ context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, filename)
	return nil
}

func (f *fakePipeline) AskWithHistory(_ context.Context, question, model string, history []rag.Turn) (*rag.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asks = append(f.asks, askCall{question, model, append([]rag.Turn(nil), history...)})
	if f.askErr != nil {
		return nil, f.askErr
	}
	answer := f.answer
	if answer == "" {
		answer = "The answer is **42**."
	}
	return &rag.Answer{
		Answer: answer,
		ContextDocs: []rag.ContextDoc{{
			PageContent: "forty-two",
			Metadata:    map[string]string{"source": "guide.txt"},
		}},
	}, nil
}

func (f *fakePipeline) Suggest(_ context.Context, _ string, model string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggested = append(f.suggested, model)
	return []string{"What is the answer?"}
}

func (f *fakePipeline) lastAsk(t *testing.T) askCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.asks) == 0 {
		t.Fatal("AskWithHistory was not called")
	}
	return f.asks[len(f.asks)-1]
}

func newTestServer(t *testing.T, p *fakePipeline) (*Server, *corpus.Corpus) {
	t.Helper()
	docs, err := corpus.New(t.TempDir())
	if err != nil {
		t.Fatalf("corpus.New: %v", err)
	}
	cfg := Config{
		ProviderType: "groq",
		ChatModel:    "llama-3.3-70b-versatile",
		SuggestModel: "llama-3.1-8b-instant",
	}
	return New(cfg, p, docs, render.New()), docs
}

func do(t *testing.T, srv *Server, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

func uploadBody(t *testing.T, filename, content string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return buf.Bytes(), mw.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})

	w := do(t, srv, "GET", "/healthz", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestRoot(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	w := do(t, srv, "GET", "/", nil, "")
	var body map[string]string
	decode(t, w, &body)
	if body["message"] != "Welcome to DocSense API" {
		t.Errorf("unexpected welcome: %v", body)
	}
}

func TestCORSHeaders(t *testing.T) {
	docs, _ := corpus.New(t.TempDir())
	srv := New(Config{AllowedOrigins: []string{"*"}}, &fakePipeline{}, docs, nil)

	req := httptest.NewRequest("OPTIONS", "/files", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestUpload_Success(t *testing.T) {
	srv, docs := newTestServer(t, &fakePipeline{})

	body, ct := uploadBody(t, "guide.txt", "hello world")
	w := do(t, srv, "POST", "/upload", body, ct)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res rag.IngestResult
	decode(t, w, &res)
	if res.Filename != "guide.txt" || res.Status != rag.StatusSuccess || res.Chunks != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	if !docs.Exists("guide.txt") {
		t.Error("uploaded file should be stored in the corpus")
	}
}

func TestUpload_IngestFailureRemovesFile(t *testing.T) {
	p := &fakePipeline{ingest: func(path string) rag.IngestResult {
		return rag.IngestResult{Filename: filepath.Base(path), Status: rag.StatusError, Message: "unsupported document format: .pptx"}
	}}
	srv, docs := newTestServer(t, p)

	body, ct := uploadBody(t, "deck.pptx", "slides")
	w := do(t, srv, "POST", "/upload", body, ct)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var res errorResponse
	decode(t, w, &res)
	if !strings.Contains(res.Detail, "unsupported") {
		t.Errorf("detail = %q", res.Detail)
	}
	if docs.Exists("deck.pptx") {
		t.Error("failed upload should be removed from the corpus")
	}
}

func TestUpload_FailedReuploadDeletesOldChunks(t *testing.T) {
	ingests := 0
	p := &fakePipeline{ingest: func(path string) rag.IngestResult {
		ingests++
		if ingests == 1 {
			return rag.IngestResult{Filename: filepath.Base(path), Status: rag.StatusSuccess, Chunks: 2}
		}
		return rag.IngestResult{Filename: filepath.Base(path), Status: rag.StatusError, Message: "document contains no text"}
	}}
	srv, docs := newTestServer(t, p)

	body, ct := uploadBody(t, "notes.txt", "first version")
	if w := do(t, srv, "POST", "/upload", body, ct); w.Code != http.StatusOK {
		t.Fatalf("first upload: expected 200, got %d", w.Code)
	}
	body, ct = uploadBody(t, "notes.txt", "   ")
	if w := do(t, srv, "POST", "/upload", body, ct); w.Code != http.StatusBadRequest {
		t.Fatalf("second upload: expected 400, got %d", w.Code)
	}

	if docs.Exists("notes.txt") {
		t.Error("failed re-upload should be removed from the corpus")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.deleted) != 1 || p.deleted[0] != "notes.txt" {
		t.Errorf("expected chunks of notes.txt to be deleted, got %v", p.deleted)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	w := do(t, srv, "POST", "/upload", []byte("nope"), "text/plain")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	docs, _ := corpus.New(t.TempDir())
	srv := New(Config{MaxUploadBytes: 64}, &fakePipeline{}, docs, nil)

	body, ct := uploadBody(t, "big.txt", strings.Repeat("x", 1024))
	w := do(t, srv, "POST", "/upload", body, ct)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if docs.Exists("big.txt") {
		t.Error("oversized upload should not be stored")
	}
}

func TestListFiles(t *testing.T) {
	srv, docs := newTestServer(t, &fakePipeline{})
	if _, _, err := docs.Save("b.txt", strings.NewReader(strings.Repeat("x", 2048))); err != nil {
		t.Fatal(err)
	}
	if _, _, err := docs.Save("a.pdf", strings.NewReader("tiny")); err != nil {
		t.Fatal(err)
	}

	w := do(t, srv, "GET", "/files", nil, "")
	var files []corpus.File
	decode(t, w, &files)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Name != "a.pdf" || files[0].Size != "4 B" {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[1].Name != "b.txt" || files[1].Size != "2.0 kB" {
		t.Errorf("files[1] = %+v", files[1])
	}
}

func TestListFiles_Empty(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	w := do(t, srv, "GET", "/files", nil, "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected [], got %s", w.Body.String())
	}
}

func TestDeleteFile(t *testing.T) {
	p := &fakePipeline{}
	srv, docs := newTestServer(t, p)

	w := do(t, srv, "DELETE", "/files/missing.txt", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if len(p.deleted) != 0 {
		t.Error("pipeline should not be called for a missing file")
	}

	docs.Save("guide.txt", strings.NewReader("content"))
	w = do(t, srv, "DELETE", "/files/guide.txt", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(p.deleted) != 1 || p.deleted[0] != "guide.txt" {
		t.Errorf("deleted = %v", p.deleted)
	}
	if docs.Exists("guide.txt") {
		t.Error("file should be removed from the corpus")
	}
}

func TestChat(t *testing.T) {
	p := &fakePipeline{}
	srv, _ := newTestServer(t, p)

	body := []byte(`{"question":"What is the answer?","history":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)
	w := do(t, srv, "POST", "/chat", body, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	decode(t, w, &resp)
	if resp.Answer != "The answer is **42**." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if !strings.Contains(resp.AnswerHTML, "<strong>42</strong>") {
		t.Errorf("answer_html = %q", resp.AnswerHTML)
	}
	if len(resp.ContextDocs) != 1 || resp.ContextDocs[0].Metadata["source"] != "guide.txt" {
		t.Errorf("context_docs = %+v", resp.ContextDocs)
	}

	call := p.lastAsk(t)
	if call.model != "llama-3.3-70b-versatile" {
		t.Errorf("default model not applied: %q", call.model)
	}
	if len(call.history) != 2 || call.history[1].Role != "assistant" {
		t.Errorf("history = %+v", call.history)
	}
}

func TestChat_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing question", `{"model_name":"llama-3.3-70b-versatile"}`, http.StatusUnprocessableEntity},
		{"unsupported model", `{"question":"q","model_name":"gpt-4o"}`, http.StatusUnprocessableEntity},
		{"bad history role", `{"question":"q","history":[{"role":"system","content":"x"}]}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{}
			srv, _ := newTestServer(t, p)
			w := do(t, srv, "POST", "/chat", []byte(tt.body), "application/json")
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if len(p.asks) != 0 {
				t.Error("pipeline should not be called for an invalid request")
			}
		})
	}
}

func TestChat_ValidationDetailUsesJSONNames(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	w := do(t, srv, "POST", "/chat", []byte(`{"question":"q","history":[{"role":"robot","content":"x"}]}`), "application/json")
	var res errorResponse
	decode(t, w, &res)
	if !strings.Contains(res.Detail, "history[0].role") {
		t.Errorf("detail = %q", res.Detail)
	}
}

func TestChat_PipelineErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validate", &rag.SynthesisError{Op: "validate", Err: rag.ErrEmptyQuestion}, http.StatusBadRequest},
		{"generate", &rag.SynthesisError{Op: "generate", Err: errors.New("upstream down")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakePipeline{askErr: tt.err})
			w := do(t, srv, "POST", "/chat", []byte(`{"question":"q"}`), "application/json")
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestQuestions(t *testing.T) {
	p := &fakePipeline{}
	srv, docs := newTestServer(t, p)

	w := do(t, srv, "GET", "/questions/missing.txt", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	docs.Save("guide.txt", strings.NewReader("content"))
	w = do(t, srv, "GET", "/questions/guide.txt", nil, "")
	var body map[string][]string
	decode(t, w, &body)
	if len(body["questions"]) != 1 {
		t.Errorf("questions = %v", body["questions"])
	}

	do(t, srv, "GET", "/questions/guide.txt?model_name=llama-3.3-70b-versatile", nil, "")
	if len(p.suggested) != 2 || p.suggested[0] != "llama-3.1-8b-instant" || p.suggested[1] != "llama-3.3-70b-versatile" {
		t.Errorf("suggest models = %v", p.suggested)
	}
}

func TestModels(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	w := do(t, srv, "GET", "/models", nil, "")

	var resp modelsResponse
	decode(t, w, &resp)
	if resp.Provider != "groq" || resp.DefaultChatModel != "llama-3.3-70b-versatile" {
		t.Errorf("unexpected models response: %+v", resp)
	}
	if len(resp.Models) == 0 {
		t.Error("expected supported models for groq")
	}
}

func TestChatSocket(t *testing.T) {
	p := &fakePipeline{}
	srv, _ := newTestServer(t, p)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ask := func(msg string) map[string]any {
		t.Helper()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
		var resp map[string]any
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		return resp
	}

	first := ask(`{"question":"first?"}`)
	if first["answer"] != "The answer is **42**." || first["answer_html"] == "" {
		t.Errorf("first response = %v", first)
	}

	second := ask(`{"question":"second?"}`)
	if _, ok := second["error"]; ok {
		t.Fatalf("unexpected error: %v", second)
	}
	call := p.lastAsk(t)
	if len(call.history) != 2 || call.history[0].Content != "first?" || call.history[1].Content != "The answer is **42**." {
		t.Errorf("history = %+v", call.history)
	}

	bad := ask(`not json`)
	if bad["error"] != "invalid message format" {
		t.Errorf("bad response = %v", bad)
	}

	empty := ask(`{"question":""}`)
	if empty["error"] == nil {
		t.Errorf("expected validation error, got %v", empty)
	}
}

func TestChatSocket_PipelineError(t *testing.T) {
	p := &fakePipeline{askErr: errors.New("upstream down")}
	srv, _ := newTestServer(t, p)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/chat", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.WriteJSON(map[string]string{"question": "q"})
	var resp map[string]any
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp["error"] != "upstream down" {
		t.Errorf("resp = %v", resp)
	}
}

func TestChatSocket_Origin(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"

	tests := []struct {
		origin string
		ok     bool
	}{
		{"http://localhost:3000", true},
		{"http://127.0.0.1:5173", true},
		{"https://evil.example", false},
		{"http://localhost.evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{tt.origin}})
			if tt.ok {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("expected handshake to be rejected")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("expected 403, got %v", resp)
			}
		})
	}
}

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"https://docs.example.com", "http://localhost:*"}
	if !originAllowed("https://DOCS.example.com", patterns) {
		t.Error("exact origin should match case-insensitively")
	}
	if !originAllowed("http://localhost:8080", patterns) {
		t.Error("wildcard port should match")
	}
	if originAllowed("https://docs.example.com.evil.io", patterns) {
		t.Error("suffix extension must not match")
	}
	if !originAllowed("https://anything.io", []string{"*"}) {
		t.Error("* allows every origin")
	}
}
