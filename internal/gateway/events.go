// ABOUTME: Server-Sent Events stream of a user's conversation events
// ABOUTME: Subscribes to the broadcaster and forwards events until the client disconnects

package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/JuzerShakir/railsdevs.com/internal/conversation"
)

// sseKeepalive is how often an idle stream sends a comment line.
const sseKeepalive = 30 * time.Second

// EventResponse is the data payload of a streamed conversation event.
type EventResponse struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id,omitempty"`
	ActorUserID    string    `json:"actor_user_id"`
	At             time.Time `json:"at"`
}

func toEventResponse(e *conversation.Event) EventResponse {
	return EventResponse{
		Type:           string(e.Type),
		ConversationID: e.ConversationID,
		MessageID:      e.MessageID,
		ActorUserID:    e.ActorUserID,
		At:             e.At,
	}
}

// handleEvents handles GET /api/users/{id}/events.
// The first event is "connected" and carries the subscription ID that
// clients send back as X-Subscription-ID; each later event is named after its type.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	if _, err := g.store.GetUser(ctx, userID); err != nil {
		g.sendServiceError(w, r, fmt.Errorf("resolving user %s: %w", userID, err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := g.broadcaster.Subscribe(ctx, userID)
	g.logger.Debug("event stream opened", "user_id", userID, "sub_id", sub.ID)

	g.writeSSEEvent(w, "connected", map[string]string{"user_id": userID, "subscription_id": sub.ID})
	flusher.Flush()

	ticker := time.NewTicker(sseKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Debug("event stream closed by client", "user_id", userID, "sub_id", sub.ID)
			return

		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()

		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			g.writeSSEEvent(w, string(ev.Type), toEventResponse(ev))
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE event to the response writer.
func (g *Gateway) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		g.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}
