package agent

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/agent-management/internal"
	"github.com/frahmantamala/agent-management/internal/transport"
)

type ServiceAPI interface {
	CreateAgent(dto CreateAgentDTO) (*Agent, error)
	GetAgent(id string) (*Agent, error)
	ListAgents(offset, limit int) ([]*Agent, int64, error)
	GetHierarchy(agentID string) ([]*Agent, error)
	Reparent(agentID string, newParentID *string) (*Agent, error)
	VerifyAccess(agentID, requestingUserID string) error
	AssignUser(agentID, userID, requestingUserID string) error
	RemoveUser(userID, requestingUserID string) error
	ManagedUsers(agentID, requestingUserID string) ([]*ManagedUser, error)
	UpdateAgent(id string, dto UpdateAgentDTO) (*Agent, error)
	DeleteAgent(id string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateAgentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Service.CreateAgent(dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, NewAgentView(a))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.GetAgent(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewAgentView(a))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)

	agents, total, err := h.Service.ListAgents(offset, limit)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListAgentsResponse{
		Agents: NewAgentViews(agents),
		Total:  total,
		Offset: offset,
		Limit:  limit,
	})
}

// Hierarchy returns the agent's subtree, the agent itself first.
func (h *Handler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	agentID := chi.URLParam(r, "id")
	if err := h.Service.VerifyAccess(agentID, principal.ID); err != nil {
		h.WriteAppError(w, err)
		return
	}

	agents, err := h.Service.GetHierarchy(agentID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"hierarchy": NewAgentViews(agents)})
}

func (h *Handler) UpdateHierarchy(w http.ResponseWriter, r *http.Request) {
	var dto ReparentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Service.Reparent(chi.URLParam(r, "id"), dto.NewParentAgentID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewAgentView(a))
}

func (h *Handler) ManagedUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	users, err := h.Service.ManagedUsers(chi.URLParam(r, "id"), principal.ID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) AssignUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	var dto AssignUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.AssignUser(dto.AgentID, dto.UserID, principal.ID); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "user assigned"})
}

func (h *Handler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	if err := h.Service.RemoveUser(chi.URLParam(r, "userId"), principal.ID); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "user removed"})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var dto UpdateAgentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.UpdateAgent(chi.URLParam(r, "id"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewAgentView(a))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteAgent(chi.URLParam(r, "id")); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	return offset, limit
}
