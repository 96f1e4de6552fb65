package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phuslu/log"

	"github.com/ziadkadry99/docsense/internal/corpus"
	"github.com/ziadkadry99/docsense/internal/llm"
	"github.com/ziadkadry99/docsense/internal/rag"
)

// chatTurn is a prior message supplied by the client.
type chatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

type chatRequest struct {
	Question  string     `json:"question" validate:"required"`
	ModelName string     `json:"model_name" validate:"omitempty,supported_model"`
	History   []chatTurn `json:"history" validate:"max=50,dive"`
}

type chatResponse struct {
	Answer      string           `json:"answer"`
	AnswerHTML  string           `json:"answer_html"`
	ContextDocs []rag.ContextDoc `json:"context_docs"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to DocSense API"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("reading upload: %v", err))
		return
	}
	defer file.Close()

	path, _, err := s.corpus.Save(header.Filename, file)
	if err != nil {
		if errors.Is(err, corpus.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res := s.pipeline.Ingest(r.Context(), path)
	if !res.OK() {
		// The file is gone from the corpus, so chunks of an earlier upload
		// under the same name would be unreachable through DELETE /files.
		if err := s.pipeline.Delete(r.Context(), res.Filename); err != nil {
			log.Warn().Err(err).Str("filename", res.Filename).Msg("deleting chunks of failed upload")
		}
		if err := s.corpus.Remove(res.Filename); err != nil && !errors.Is(err, corpus.ErrNotFound) {
			log.Warn().Err(err).Str("filename", res.Filename).Msg("removing failed upload")
		}
		writeError(w, http.StatusBadRequest, res.Message)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.corpus.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !s.corpus.Exists(filename) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	if err := s.pipeline.Delete(r.Context(), filename); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.corpus.Remove(filename); err != nil && !errors.Is(err, corpus.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  rag.StatusSuccess,
		"message": "Deleted " + filename,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	history := make([]rag.Turn, len(req.History))
	for i, t := range req.History {
		history[i] = rag.Turn{Role: llm.Role(t.Role), Content: t.Content}
	}

	resp, err := s.answer(r.Context(), req.Question, req.ModelName, history)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// answer runs a question and renders the reply.
func (s *Server) answer(ctx context.Context, question, model string, history []rag.Turn) (*chatResponse, error) {
	if model == "" {
		model = s.cfg.ChatModel
	}
	ans, err := s.pipeline.AskWithHistory(ctx, question, model, history)
	if err != nil {
		return nil, err
	}
	html, err := s.renderer.HTML(ans.Answer)
	if err != nil {
		// The plain answer is still usable.
		log.Warn().Err(err).Msg("rendering answer")
	}
	docs := ans.ContextDocs
	if docs == nil {
		docs = []rag.ContextDoc{}
	}
	return &chatResponse{Answer: ans.Answer, AnswerHTML: html, ContextDocs: docs}, nil
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var se *rag.SynthesisError
	if errors.As(err, &se) && se.Op == "validate" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, err := s.corpus.Path(filename)
	if errors.Is(err, corpus.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	model := r.URL.Query().Get("model_name")
	if model == "" {
		model = s.cfg.SuggestModel
	}
	questions := s.pipeline.Suggest(r.Context(), path, model)
	writeJSON(w, http.StatusOK, map[string][]string{"questions": questions})
}

type modelsResponse struct {
	Provider            string          `json:"provider"`
	DefaultChatModel    string          `json:"default_chat_model"`
	DefaultSuggestModel string          `json:"default_suggest_model"`
	Models              []llm.ModelInfo `json:"models"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := llm.SupportedModels(s.cfg.ProviderType)
	if models == nil {
		models = []llm.ModelInfo{}
	}
	writeJSON(w, http.StatusOK, modelsResponse{
		Provider:            s.cfg.ProviderType,
		DefaultChatModel:    s.cfg.ChatModel,
		DefaultSuggestModel: s.cfg.SuggestModel,
		Models:              models,
	})
}
