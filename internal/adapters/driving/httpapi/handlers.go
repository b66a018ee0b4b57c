package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

type createChatRequest struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Visibility string `json:"visibility,omitempty"`
}

type visibilityRequest struct {
	Visibility string `json:"visibility"`
}

type messageRequest struct {
	ID        string `json:"id,omitempty"`
	AuthorID  string `json:"author_id,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	State     string `json:"state,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type appendMessagesRequest struct {
	Messages []messageRequest `json:"messages"`
}

type voteRequest struct {
	Type string `json:"type"`
}

type saveVersionRequest struct {
	ChatID    string `json:"chat_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type restoreRequest struct {
	Timestamp int64 `json:"timestamp"`
}

type messagesResponse struct {
	Messages []domain.Message `json:"messages"`
	Count    int              `json:"count"`
}

type votesResponse struct {
	Votes []domain.Vote `json:"votes"`
	Count int           `json:"count"`
}

type chatsResponse struct {
	Chats []domain.Chat `json:"chats"`
	Count int           `json:"count"`
}

type versionsResponse struct {
	Versions []domain.Version `json:"versions"`
	Count    int              `json:"count"`
}

type restoreResponse struct {
	Remaining int `json:"remaining"`
}

// readBody decodes the request body and writes a 400 on failure.
func readBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(w, r, v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if !readBody(w, r, &req) {
		return
	}
	chat, err := s.ports.Chats.Create(r.Context(), req.ID, req.OwnerID, req.Title, domain.Visibility(req.Visibility))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.ports.Chats.List(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	writeJSON(w, http.StatusOK, chatsResponse{Chats: chats, Count: len(chats)})
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	chat, err := s.ports.Chats.Get(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) deleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.ports.Coordinator.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if !readBody(w, r, &req) {
		return
	}
	chat, err := s.ports.Chats.SetVisibility(r.Context(), chi.URLParam(r, "chatID"), domain.Visibility(req.Visibility))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) appendMessages(w http.ResponseWriter, r *http.Request) {
	var req appendMessagesRequest
	if !readBody(w, r, &req) {
		return
	}
	chatID := chi.URLParam(r, "chatID")
	msgs := make([]domain.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = domain.Message{
			ID:        m.ID,
			ChatID:    chatID,
			AuthorID:  m.AuthorID,
			Role:      domain.Role(m.Role),
			Content:   m.Content,
			State:     domain.MessageState(m.State),
			CreatedAt: m.CreatedAt,
		}
	}

	inserted, err := s.ports.Messages.Append(r.Context(), msgs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if inserted == nil {
		inserted = []domain.Message{}
	}
	writeJSON(w, http.StatusCreated, messagesResponse{Messages: inserted, Count: len(inserted)})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.ports.Messages.List(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs, Count: len(msgs)})
}

func (s *Server) deleteTrailing(w http.ResponseWriter, r *http.Request) {
	result, err := s.ports.Coordinator.TruncateTrailing(r.Context(), chi.URLParam(r, "messageID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !readBody(w, r, &req) {
		return
	}
	v, err := s.ports.Votes.Vote(r.Context(), chi.URLParam(r, "chatID"), chi.URLParam(r, "messageID"), domain.VoteType(req.Type))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) listVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.ports.Votes.List(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if votes == nil {
		votes = []domain.Vote{}
	}
	writeJSON(w, http.StatusOK, votesResponse{Votes: votes, Count: len(votes)})
}

func (s *Server) saveVersion(w http.ResponseWriter, r *http.Request) {
	var req saveVersionRequest
	if !readBody(w, r, &req) {
		return
	}
	v, err := s.ports.Documents.SaveVersion(r.Context(), driving.SaveVersionRequest{
		DocumentID: chi.URLParam(r, "documentID"),
		ChatID:     req.ChatID,
		Kind:       domain.DocumentKind(req.Kind),
		Title:      req.Title,
		Content:    req.Content,
		CreatedAt:  req.CreatedAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.ports.Documents.ListVersions(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if versions == nil {
		versions = []domain.Version{}
	}
	writeJSON(w, http.StatusOK, versionsResponse{Versions: versions, Count: len(versions)})
}

func (s *Server) latestVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.ports.Documents.Latest(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) restoreVersion(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if !readBody(w, r, &req) {
		return
	}
	remaining, err := s.ports.Documents.RestoreTo(r.Context(), chi.URLParam(r, "documentID"), req.Timestamp)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, restoreResponse{Remaining: remaining})
}
