// Package inbound routes email replies into conversations.
//
// Every conversation has an inbound email token; mail sent to
// <token>@<inbound domain> is posted to that conversation as a message from
// the user owning the From address. Token matching ignores case.
//
// Router.Deliver takes a Delivery that the mail server has already parsed
// and rejects it with:
//
//   - ErrDuplicateDelivery: the Message-ID was delivered within the dedupe TTL
//   - ErrNoConversationAddress: no recipient is on the inbound domain
//   - conversation.ErrNotFound: the token matches no conversation
//   - ErrUnknownSender: the From address is unparseable or belongs to no user
//
// and otherwise passes the conversation's own errors (ErrNotParticipant,
// ErrBlocked, ErrOrphaned) through.
package inbound
