// ABOUTME: Subcommand implementations for the operator CLI
// ABOUTME: Each command parses its own flags and drives the conversation service

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/JuzerShakir/railsdevs.com/internal/conversation"
	"github.com/JuzerShakir/railsdevs.com/internal/inbound"
	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

// splitPositional pulls a leading positional argument off args so flags may
// follow it, as in "show <id> -as user-1".
func splitPositional(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func parseSide(s string) (store.Side, error) {
	side := store.Side(strings.ToLower(strings.TrimSpace(s)))
	if !side.Valid() {
		return "", fmt.Errorf("side must be %q or %q, got %q", store.SideDeveloper, store.SideBusiness, s)
	}
	return side, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("Jan 02 15:04")
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// truncate shortens s to at most n characters, never splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// cmdAdd registers a user, developer or business
func cmdAdd(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("add requires a kind: user, developer or business")
	}
	kind, args := args[0], args[1:]

	fs := newFlagSet("add " + kind)
	id := fs.String("id", "", "ID (generated when empty)")
	email := fs.String("email", "", "Email address (user)")
	userID := fs.String("user", "", "Owning user ID (developer, business)")
	name := fs.String("name", "", "Display name (developer, business)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		*id = uuid.New().String()
	}

	var err error
	switch kind {
	case "user":
		if *email == "" {
			return fmt.Errorf("-email is required")
		}
		err = a.store.CreateUser(ctx, &store.User{ID: *id, Email: *email})
	case "developer":
		if *userID == "" {
			return fmt.Errorf("-user is required")
		}
		err = a.store.CreateDeveloper(ctx, &store.Developer{ID: *id, UserID: *userID, Name: *name})
	case "business":
		if *userID == "" {
			return fmt.Errorf("-user is required")
		}
		err = a.store.CreateBusiness(ctx, &store.Business{ID: *id, UserID: *userID, Name: *name})
	default:
		return fmt.Errorf("unknown kind: %s (use user, developer, business)", kind)
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", kind, err)
	}

	color.Green("Created %s %s", kind, *id)
	return nil
}

func cmdStart(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("start")
	developerID := fs.String("developer", "", "Developer ID")
	businessID := fs.String("business", "", "Business ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	state, err := a.svc.Start(ctx, conversation.StartRequest{
		DeveloperID: *developerID,
		BusinessID:  *businessID,
	})
	if err != nil {
		return err
	}

	conv := state.Conversation
	color.Green("Started conversation %s", conv.ID)
	fmt.Printf("  Token:  %s\n", conv.InboundEmailToken)
	if a.cfg.Inbound.Domain != "" {
		fmt.Printf("  Reply:  %s@%s\n", conv.InboundEmailToken, a.cfg.Inbound.Domain)
	}
	return nil
}

// loadConversation accepts either a conversation ID or an inbound email token.
func loadConversation(ctx context.Context, a *app, ref string) (*conversation.State, error) {
	if ref == "" {
		return nil, fmt.Errorf("conversation ID or token is required")
	}
	state, err := a.svc.Load(ctx, ref)
	if errors.Is(err, conversation.ErrNotFound) {
		return a.svc.LoadByToken(ctx, ref)
	}
	return state, err
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	ref, args := splitPositional(args)
	fs := newFlagSet("show")
	as := fs.String("as", "", "View as this user ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	state, err := loadConversation(ctx, a, ref)
	if err != nil {
		return err
	}
	conv := state.Conversation

	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	gray := color.New(color.FgHiBlack)

	fmt.Println()
	cyan.Printf("  Conversation %s\n", conv.ID)
	cyan.Println("  " + strings.Repeat("-", 13+len(conv.ID)))
	fmt.Printf("  Developer:   %s\n", deref(conv.DeveloperID))
	fmt.Printf("  Business:    %s\n", deref(conv.BusinessID))
	fmt.Printf("  Token:       %s\n", conv.InboundEmailToken)
	fmt.Printf("  Created:     %s\n", formatTime(&conv.CreatedAt))
	fmt.Printf("  Blocked:     developer=%s business=%s\n",
		formatTime(conv.DeveloperBlockedAt), formatTime(conv.BusinessBlockedAt))
	fmt.Printf("  Archived:    developer=%s business=%s\n",
		formatTime(conv.DeveloperArchivedAt), formatTime(conv.BusinessArchivedAt))
	fmt.Printf("  Unread by:   %s\n", deref(conv.UserWithUnreadMessagesID))
	fmt.Printf("  Hiring fee:  %t\n", a.svc.HiringFeeEligible(state))

	if state.IsOrphaned() {
		yellow.Println("  Orphaned: a participant's profile was deleted")
	} else if state.IsBlocked() {
		yellow.Println("  Blocked")
	}

	if *as != "" {
		if err := showViewer(ctx, a, state, *as); err != nil {
			return err
		}
	}

	fmt.Println()
	if len(state.Messages) == 0 {
		gray.Println("  (no messages)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  SENT\tFROM\tBODY")
	fmt.Fprintln(w, "  ----\t----\t----")
	for _, m := range state.Messages {
		body := strings.ReplaceAll(m.Body, "\n", " ")
		fmt.Fprintf(w, "  %s\t%s\t%s\n", formatTime(&m.CreatedAt), m.SenderSide, truncate(body, 60))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func showViewer(ctx context.Context, a *app, state *conversation.State, userID string) error {
	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolving user %s: %w", userID, err)
	}
	side, err := state.SideOf(user)
	if err != nil {
		return err
	}
	read, err := a.svc.LatestMessageReadByOtherRecipient(ctx, state, userID)
	if err != nil {
		return err
	}

	fmt.Printf("  Viewer:      %s (%s)\n", userID, side)
	fmt.Printf("  Unread:      %t\n", state.HasUnreadFor(user))
	fmt.Printf("  Seen:        %t\n", read)
	return nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list")
	userID := fs.String("user", "", "User ID")
	sideFlag := fs.String("side", string(store.SideDeveloper), "Inbox side: developer or business")
	archived := fs.Bool("archived", false, "List archived conversations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("-user is required")
	}
	side, err := parseSide(*sideFlag)
	if err != nil {
		return err
	}

	convs, err := a.svc.Inbox(ctx, *userID, side, *archived)
	if err != nil {
		return err
	}

	title := "Inbox"
	if *archived {
		title = "Archived"
	}
	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Printf("  %s (%s)\n", title, side)
	cyan.Println("  " + strings.Repeat("-", len(title)+len(side)+3))

	if len(convs) == 0 {
		fmt.Println("  (no conversations)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tDEVELOPER\tBUSINESS\tUNREAD\tUPDATED")
	fmt.Fprintln(w, "  --\t---------\t--------\t------\t-------")
	for _, c := range convs {
		unread := ""
		if c.UserWithUnreadMessagesID != nil && *c.UserWithUnreadMessagesID == *userID {
			unread = "*"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			truncate(c.ID, 12), truncate(deref(c.DeveloperID), 16), truncate(deref(c.BusinessID), 16),
			unread, formatTime(&c.UpdatedAt))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdSend(ctx context.Context, a *app, args []string) error {
	convID, args := splitPositional(args)
	fs := newFlagSet("send")
	userID := fs.String("user", "", "Sending user ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	body := strings.Join(fs.Args(), " ")
	if body == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		body = strings.TrimSpace(string(data))
	}

	res, err := a.svc.SendMessage(ctx, conversation.SendRequest{
		ConversationID: convID,
		SenderUserID:   *userID,
		Body:           body,
	})
	if err != nil {
		return err
	}

	color.Green("Sent message %s", res.Message.ID)
	if res.FirstReply {
		fmt.Println("  First reply from this side")
	}
	return nil
}

func cmdRead(ctx context.Context, a *app, args []string) error {
	convID, args := splitPositional(args)
	fs := newFlagSet("read")
	userID := fs.String("user", "", "Reading user ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if convID == "" || *userID == "" {
		return fmt.Errorf("conversation ID and -user are required")
	}

	receipt, err := a.svc.MarkNotificationsRead(ctx, convID, *userID)
	if err != nil {
		return err
	}

	color.Green("Marked %d notification(s) read", receipt.Marked)
	if receipt.UnreadCleared {
		fmt.Println("  Cleared unread flag")
	}
	return nil
}

func cmdToggle(ctx context.Context, a *app, action string, args []string) error {
	convID, args := splitPositional(args)
	fs := newFlagSet(action)
	userID := fs.String("user", "", "Acting user ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if convID == "" || *userID == "" {
		return fmt.Errorf("conversation ID and -user are required")
	}

	var op func(context.Context, string, string) (*conversation.State, error)
	switch action {
	case "block":
		op = a.svc.Block
	case "unblock":
		op = a.svc.Unblock
	case "archive":
		op = a.svc.Archive
	case "unarchive":
		op = a.svc.Unarchive
	default:
		return fmt.Errorf("unknown action: %s", action)
	}

	state, err := op(ctx, convID, *userID)
	if err != nil {
		return err
	}

	past := map[string]string{
		"block":     "Blocked",
		"unblock":   "Unblocked",
		"archive":   "Archived",
		"unarchive": "Unarchived",
	}
	color.Green("%s conversation %s", past[action], state.Conversation.ID)
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	convID, _ := splitPositional(args)
	if convID == "" {
		return fmt.Errorf("conversation ID is required")
	}
	if err := a.svc.Delete(ctx, convID); err != nil {
		return err
	}
	color.Green("Deleted conversation %s", convID)
	return nil
}

// cmdDeliver routes a stream of JSON-encoded inbound.Delivery values read
// from r. Duplicates within the stream are skipped; the first failure stops
// the run.
func cmdDeliver(ctx context.Context, a *app, r io.Reader) error {
	if a.router == nil {
		return fmt.Errorf("inbound.domain is not configured")
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	delivered, skipped := 0, 0
	for {
		var d inbound.Delivery
		err := dec.Decode(&d)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("decoding delivery %d: %w", delivered+skipped+1, err)
		}

		res, err := a.router.Deliver(ctx, d)
		if errors.Is(err, inbound.ErrDuplicateDelivery) {
			color.Yellow("Skipped duplicate %s", d.MessageID)
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("delivering %s: %w", d.MessageID, err)
		}

		color.Green("Delivered %s to conversation %s", res.Message.ID, res.Message.ConversationID)
		delivered++
	}

	fmt.Printf("%d delivered, %d duplicate(s) skipped\n", delivered, skipped)
	return nil
}
