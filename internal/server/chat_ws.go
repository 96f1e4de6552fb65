package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/phuslu/log"

	"github.com/ziadkadry99/docsense/internal/llm"
	"github.com/ziadkadry99/docsense/internal/rag"
)

// checkOrigin admits browser connections only from the CORS allowlist.
// Requests without an Origin header do not come from a browser and pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return originAllowed(origin, s.origins)
}

// originAllowed matches origin against patterns that may hold one "*"
// wildcard, the same form go-chi/cors accepts.
func originAllowed(origin string, patterns []string) bool {
	origin = strings.ToLower(origin)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == "*" || p == origin {
			return true
		}
		prefix, suffix, ok := strings.Cut(p, "*")
		if ok && len(origin) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// socketRequest is the incoming websocket message format.
type socketRequest struct {
	Question  string `json:"question" validate:"required"`
	ModelName string `json:"model_name" validate:"omitempty,supported_model"`
}

// socketResponse carries either an answer or an error.
type socketResponse struct {
	*chatResponse
	Error string `json:"error,omitempty"`
}

// handleChatSocket answers questions over one websocket, keeping the
// session's turns and sending them as history with each question.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	var history []rag.Turn
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var req socketRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			if !s.send(conn, socketResponse{Error: "invalid message format"}) {
				return
			}
			continue
		}

		if err := s.validate.Struct(req); err != nil {
			if !s.send(conn, socketResponse{Error: validationDetail(err)}) {
				return
			}
			continue
		}

		ctx, cancel := r.Context(), context.CancelFunc(func() {})
		if s.cfg.RequestTimeout > 0 {
			ctx, cancel = context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		}
		resp, err := s.answer(ctx, req.Question, req.ModelName, history)
		cancel()
		if err != nil {
			if !s.send(conn, socketResponse{Error: err.Error()}) {
				return
			}
			continue
		}

		history = append(history,
			rag.Turn{Role: llm.RoleUser, Content: req.Question},
			rag.Turn{Role: llm.RoleAssistant, Content: resp.Answer},
		)
		if !s.send(conn, socketResponse{chatResponse: resp}) {
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, resp socketResponse) bool {
	if err := conn.WriteJSON(resp); err != nil {
		log.Warn().Err(err).Msg("websocket write")
		return false
	}
	return true
}
