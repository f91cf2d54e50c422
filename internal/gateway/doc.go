// Package gateway serves the conversation service over HTTP.
//
// # Routes
//
//	GET    /health
//	POST   /api/conversations                       start {developer_id, business_id}
//	GET    /api/conversations/{id}[?as=USER]        conversation, messages, hiring fee
//	DELETE /api/conversations/{id}
//	POST   /api/conversations/{id}/messages         {sender_user_id, body}
//	POST   /api/conversations/{id}/read             {user_id}
//	POST   /api/conversations/{id}/block            {user_id}, likewise unblock,
//	                                                archive and unarchive
//	GET    /api/users/{id}/inbox?side=&archived=
//	GET    /api/users/{id}/events                   Server-Sent Events
//	POST   /inbound                                 inbound.Delivery JSON
//
// /inbound is only registered when inbound.domain is configured.
//
// The "connected" event of a stream carries its subscription_id. A request
// sent with that ID in the X-Subscription-ID header is not echoed to the
// stream it came from.
//
// The API performs no authentication; acting user IDs come from the request.
// Run it behind a proxy that authenticates callers.
//
// # Errors
//
// Errors are JSON objects {"error": "..."}. Service errors map to:
//
//   - validation failures: 400
//   - conversation.ErrNotParticipant: 403
//   - conversation.ErrNotFound, store.ErrNotFound: 404
//   - conversation.ErrBlocked, ErrOrphaned, store.ErrDuplicateConversation: 409
//   - inbound.ErrNoConversationAddress, ErrUnknownSender: 422
//
// A duplicate inbound delivery is acknowledged with 200 and
// {"status": "duplicate"}.
package gateway
