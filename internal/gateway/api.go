// ABOUTME: HTTP API handlers for conversations, messages and inboxes
// ABOUTME: Translates JSON requests into conversation.Service calls and maps errors to status codes

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/JuzerShakir/railsdevs.com/internal/conversation"
	"github.com/JuzerShakir/railsdevs.com/internal/inbound"
	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// StartRequest is the JSON request body for POST /api/conversations.
type StartRequest struct {
	DeveloperID string `json:"developer_id"`
	BusinessID  string `json:"business_id"`
}

// SendMessageRequest is the JSON request body for POST /api/conversations/{id}/messages.
type SendMessageRequest struct {
	SenderUserID string `json:"sender_user_id"`
	Body         string `json:"body"`
}

// ActorRequest names the user performing read, block and archive actions.
type ActorRequest struct {
	UserID string `json:"user_id"`
}

// MessageResponse is the JSON form of a message.
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderSide     string    `json:"sender_side"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// ViewerResponse describes a conversation from one participant's point of view.
type ViewerResponse struct {
	UserID string `json:"user_id"`
	Side   string `json:"side"`
	Unread bool   `json:"unread"`

	// LatestMessageRead is whether the other participant read the newest message
	LatestMessageRead bool `json:"latest_message_read"`
}

// ConversationResponse is the JSON form of a conversation.
type ConversationResponse struct {
	ID                       string            `json:"id"`
	InboundEmailToken        string            `json:"inbound_email_token"`
	DeveloperID              *string           `json:"developer_id"`
	BusinessID               *string           `json:"business_id"`
	DeveloperBlockedAt       *time.Time        `json:"developer_blocked_at,omitempty"`
	BusinessBlockedAt        *time.Time        `json:"business_blocked_at,omitempty"`
	DeveloperArchivedAt      *time.Time        `json:"developer_archived_at,omitempty"`
	BusinessArchivedAt       *time.Time        `json:"business_archived_at,omitempty"`
	UserWithUnreadMessagesID *string           `json:"user_with_unread_messages_id"`
	Blocked                  bool              `json:"blocked"`
	Orphaned                 bool              `json:"orphaned"`
	HiringFeeEligible        *bool             `json:"hiring_fee_eligible,omitempty"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
	Messages                 []MessageResponse `json:"messages,omitempty"`
	Viewer                   *ViewerResponse   `json:"viewer,omitempty"`
}

// SendMessageResponse is the JSON response for a sent message.
type SendMessageResponse struct {
	Message    MessageResponse `json:"message"`
	FirstReply bool            `json:"first_reply"`
}

// ReadReceiptResponse is the JSON response for POST /api/conversations/{id}/read.
type ReadReceiptResponse struct {
	Marked        int64 `json:"marked"`
	UnreadCleared bool  `json:"unread_cleared"`
}

// InboxResponse is the JSON response for GET /api/users/{id}/inbox.
type InboxResponse struct {
	UserID        string                 `json:"user_id"`
	Side          string                 `json:"side"`
	Archived      bool                   `json:"archived"`
	Conversations []ConversationResponse `json:"conversations"`
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderSide:     string(m.SenderSide),
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
}

func toConversationResponse(c *store.Conversation) ConversationResponse {
	state := conversation.NewState(c, nil)
	return ConversationResponse{
		ID:                       c.ID,
		InboundEmailToken:        c.InboundEmailToken,
		DeveloperID:              c.DeveloperID,
		BusinessID:               c.BusinessID,
		DeveloperBlockedAt:       c.DeveloperBlockedAt,
		BusinessBlockedAt:        c.BusinessBlockedAt,
		DeveloperArchivedAt:      c.DeveloperArchivedAt,
		BusinessArchivedAt:       c.BusinessArchivedAt,
		UserWithUnreadMessagesID: c.UserWithUnreadMessagesID,
		Blocked:                  state.IsBlocked(),
		Orphaned:                 state.IsOrphaned(),
		CreatedAt:                c.CreatedAt,
		UpdatedAt:                c.UpdatedAt,
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, conversation.ErrBlocked),
		errors.Is(err, conversation.ErrOrphaned),
		errors.Is(err, store.ErrDuplicateConversation):
		return http.StatusConflict
	case errors.Is(err, inbound.ErrNoConversationAddress), errors.Is(err, inbound.ErrUnknownSender):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// sendJSON writes v as a JSON response with the given status.
func (g *Gateway) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.sendJSON(w, status, map[string]string{"error": message})
}

// sendServiceError maps err to a status and writes it. Internal errors are
// logged and not echoed to the client.
func (g *Gateway) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		g.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		g.sendJSONError(w, status, "internal error")
		return
	}
	g.sendJSONError(w, status, err.Error())
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// handleStart handles POST /api/conversations.
func (g *Gateway) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := g.service.Start(r.Context(), conversation.StartRequest{
		DeveloperID: req.DeveloperID,
		BusinessID:  req.BusinessID,
	})
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.sendJSON(w, http.StatusCreated, toConversationResponse(state.Conversation))
}

// handleShow handles GET /api/conversations/{id}. The ?as=<user id> query
// adds the viewer's unread and seen state.
func (g *Gateway) handleShow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := g.service.Load(ctx, r.PathValue("id"))
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	resp := toConversationResponse(state.Conversation)
	resp.HiringFeeEligible = lo.ToPtr(g.service.HiringFeeEligible(state))
	resp.Messages = lo.Map(state.Messages, func(m *store.Message, _ int) MessageResponse {
		return toMessageResponse(m)
	})

	if userID := r.URL.Query().Get("as"); userID != "" {
		user, err := g.store.GetUser(ctx, userID)
		if err != nil {
			g.sendServiceError(w, r, fmt.Errorf("resolving user %s: %w", userID, err))
			return
		}
		side, err := state.SideOf(user)
		if err != nil {
			g.sendServiceError(w, r, err)
			return
		}
		read, err := g.service.LatestMessageReadByOtherRecipient(ctx, state, userID)
		if err != nil {
			g.sendServiceError(w, r, err)
			return
		}
		resp.Viewer = &ViewerResponse{
			UserID:            userID,
			Side:              string(side),
			Unread:            state.HasUnreadFor(user),
			LatestMessageRead: read,
		}
	}

	g.sendJSON(w, http.StatusOK, resp)
}

// handleDelete handles DELETE /api/conversations/{id}.
func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := g.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage handles POST /api/conversations/{id}/messages.
func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := g.service.SendMessage(r.Context(), conversation.SendRequest{
		ConversationID: r.PathValue("id"),
		SenderUserID:   req.SenderUserID,
		Body:           req.Body,
	})
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.sendJSON(w, http.StatusCreated, SendMessageResponse{
		Message:    toMessageResponse(res.Message),
		FirstReply: res.FirstReply,
	})
}

// handleMarkRead handles POST /api/conversations/{id}/read.
func (g *Gateway) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	receipt, err := g.service.MarkNotificationsRead(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.sendJSON(w, http.StatusOK, ReadReceiptResponse{
		Marked:        receipt.Marked,
		UnreadCleared: receipt.UnreadCleared,
	})
}

// handleToggle handles POST /api/conversations/{id}/{block,unblock,archive,unarchive}.
func (g *Gateway) handleToggle(w http.ResponseWriter, r *http.Request) {
	var op func(context.Context, string, string) (*conversation.State, error)
	switch r.PathValue("action") {
	case "block":
		op = g.service.Block
	case "unblock":
		op = g.service.Unblock
	case "archive":
		op = g.service.Archive
	case "unarchive":
		op = g.service.Unarchive
	default:
		g.sendJSONError(w, http.StatusNotFound, "unknown action")
		return
	}

	var req ActorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	state, err := op(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.sendJSON(w, http.StatusOK, toConversationResponse(state.Conversation))
}

// handleInbox handles GET /api/users/{id}/inbox?side=developer|business&archived=true.
func (g *Gateway) handleInbox(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	q := r.URL.Query()

	side := store.Side(q.Get("side"))
	if side == "" {
		side = store.SideDeveloper
	}
	if !side.Valid() {
		g.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("side must be %q or %q", store.SideDeveloper, store.SideBusiness))
		return
	}

	archived := false
	if v := q.Get("archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "archived must be a boolean")
			return
		}
		archived = b
	}

	convs, err := g.service.Inbox(r.Context(), userID, side, archived)
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.sendJSON(w, http.StatusOK, InboxResponse{
		UserID:        userID,
		Side:          string(side),
		Archived:      archived,
		Conversations: lo.Map(convs, func(c *store.Conversation, _ int) ConversationResponse { return toConversationResponse(c) }),
	})
}

// handleInbound handles POST /inbound, the mail server's delivery webhook.
// A duplicate Message-ID is acknowledged with 200 so the mail server stops retrying.
func (g *Gateway) handleInbound(w http.ResponseWriter, r *http.Request) {
	var d inbound.Delivery
	if err := decodeJSON(w, r, &d); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := g.inbound.Deliver(r.Context(), d)
	if errors.Is(err, inbound.ErrDuplicateDelivery) {
		g.sendJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.sendJSON(w, http.StatusCreated, SendMessageResponse{
		Message:    toMessageResponse(res.Message),
		FirstReply: res.FirstReply,
	})
}
