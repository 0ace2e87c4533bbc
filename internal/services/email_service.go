package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

// InboxState remembers, per user, where the last Gmail sync stopped and
// which messages were already looked at.
type InboxState interface {
	Cursor(ctx context.Context, ownerID string) (uint64, error)
	SaveCursor(ctx context.Context, ownerID string, historyID uint64) error
	IsProcessed(ctx context.Context, ownerID, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, ownerID, messageID string) error
}

// Suggestion is a follow-up candidate found in the inbox. It is shown to the
// user and only applied through ApplyFollowUp.
type Suggestion struct {
	MessageID   string           `json:"message_id"`
	Subject     string           `json:"subject"`
	From        string           `json:"from"`
	PlacementID string           `json:"placement_id"`
	Company     string           `json:"company_name"`
	Candidate   models.Candidate `json:"candidate"`
}

const (
	fullSyncQuery      = "subject:(application OR interview OR test OR assessment OR shortlisted OR offer OR rejected OR status) newer_than:7d"
	fullSyncMaxResults = 50
)

type InboxService struct {
	Gmail      *gmail.Service
	State      InboxState
	Placements *PlacementService
	Matcher    *MatcherService

	// RetrySleep is the first backoff delay for Gmail calls.
	RetrySleep time.Duration
	log        *zap.Logger
}

func NewInboxService(gmailSvc *gmail.Service, state InboxState, placements *PlacementService, matcher *MatcherService, log *zap.Logger) *InboxService {
	return &InboxService{
		Gmail:      gmailSvc,
		State:      state,
		Placements: placements,
		Matcher:    matcher,
		RetrySleep: time.Second,
		log:        logging.OrNop(log),
	}
}

// Suggestions syncs the inbox on demand and returns follow-up candidates for
// emails that match a tracked placement. The first run scans the last 7 days;
// later runs only read what arrived since the stored history id.
//
// Inbox state only moves forward when every message of the batch was handled.
// A failed extraction returns its error and leaves the cursor and the
// processed set untouched, so the next run reads the same messages again.
func (s *InboxService) Suggestions(ctx context.Context, sess Session) ([]Suggestion, error) {
	if s == nil || s.Gmail == nil {
		return nil, common.NewError(common.CodeUnavailable, "Gmail is not configured", nil)
	}
	if !s.Placements.CanExtract() {
		return nil, common.NewError(common.CodeUnavailable, "AI extraction is not configured", nil)
	}
	records, err := s.Placements.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	cursor, err := s.State.Cursor(ctx, sess.UserID)
	if err != nil {
		return nil, common.NewError(common.CodeStore, "failed to load inbox state", err)
	}

	var messages []*gmail.Message
	var newHistoryID uint64
	if cursor == 0 {
		s.log.Info("first inbox sync, scanning the last 7 days", zap.String("user", sess.UserID))
		messages, newHistoryID, err = s.performFullSync(ctx)
	} else {
		messages, newHistoryID, err = s.performIncrementalSync(ctx, cursor)
		if err != nil && isHistoryExpiredError(err) {
			s.log.Warn("history id expired, falling back to full sync", zap.Uint64("history_id", cursor))
			messages, newHistoryID, err = s.performFullSync(ctx)
		}
	}
	if err != nil {
		return nil, common.NewError(common.CodeUnavailable, "failed to read the inbox", err)
	}

	suggestions := []Suggestion{}
	var handled []string
	for _, msg := range messages {
		done, err := s.State.IsProcessed(ctx, sess.UserID, msg.Id)
		if err != nil {
			return nil, common.NewError(common.CodeStore, "failed to load inbox state", err)
		}
		if done {
			continue
		}
		sg, matched, err := s.processSingleEmail(ctx, sess, msg, records)
		if err != nil {
			return nil, err
		}
		if matched {
			suggestions = append(suggestions, sg)
		}
		handled = append(handled, msg.Id)
	}

	for _, id := range handled {
		if err := s.State.MarkProcessed(ctx, sess.UserID, id); err != nil {
			return nil, common.NewError(common.CodeStore, "failed to save inbox state", err)
		}
	}
	if newHistoryID > cursor {
		if err := s.State.SaveCursor(ctx, sess.UserID, newHistoryID); err != nil {
			return nil, common.NewError(common.CodeStore, "failed to save inbox state", err)
		}
	}
	s.log.Info("inbox sync finished",
		zap.Int("messages", len(messages)),
		zap.Int("suggestions", len(suggestions)),
		zap.Uint64("history_id", newHistoryID))
	return suggestions, nil
}

func (s *InboxService) performFullSync(ctx context.Context) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListMessagesResponse
	err := s.retry(ctx, 3, func() error {
		var e error
		resp, e = s.Gmail.Users.Messages.List("me").Q(fullSyncQuery).MaxResults(fullSyncMaxResults).Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	// The profile's current history id becomes the anchor for incremental syncs.
	profile, err := s.Gmail.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, 0, err
	}
	return s.expandMessages(ctx, resp.Messages), profile.HistoryId, nil
}

func (s *InboxService) performIncrementalSync(ctx context.Context, startID uint64) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListHistoryResponse
	err := s.retry(ctx, 3, func() error {
		var e error
		// Only added messages matter, not label changes.
		resp, e = s.Gmail.Users.History.List("me").
			StartHistoryId(startID).
			HistoryTypes("messageAdded").
			Context(ctx).
			Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	var headers []*gmail.Message
	for _, h := range resp.History {
		for _, added := range h.MessagesAdded {
			if added.Message != nil {
				headers = append(headers, added.Message)
			}
		}
	}
	return s.expandMessages(ctx, headers), resp.HistoryId, nil
}

// expandMessages fetches full bodies; messages that cannot be fetched are skipped.
func (s *InboxService) expandMessages(ctx context.Context, headers []*gmail.Message) []*gmail.Message {
	var full []*gmail.Message
	for _, h := range headers {
		var msg *gmail.Message
		err := s.retry(ctx, 2, func() error {
			var e error
			msg, e = s.Gmail.Users.Messages.Get("me", h.Id).Format("full").Context(ctx).Do()
			return e
		})
		if err != nil {
			s.log.Warn("skipping message", zap.String("message_id", h.Id), zap.Error(err))
			continue
		}
		full = append(full, msg)
	}
	return full
}

// processSingleEmail reports matched=false for emails about no tracked
// placement. An error means the email matched but could not be extracted.
func (s *InboxService) processSingleEmail(ctx context.Context, sess Session, msg *gmail.Message, records []models.Placement) (Suggestion, bool, error) {
	headers := parseHeaders(msg)
	subject := headers["subject"]
	sender := headers["from"]
	log := s.log.With(zap.String("message_id", msg.Id), zap.String("subject", shorten(subject, 40)))

	placement := s.Matcher.FindPlacement(subject, sender, records)
	if placement == nil {
		log.Debug("no tracked placement matches this email", zap.String("from", sender))
		return Suggestion{}, false, nil
	}

	body := getEmailBody(msg)
	if strings.TrimSpace(body) == "" {
		body = msg.Snippet
	}
	text := fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", subject, sender, body)

	candidate, err := s.Placements.Extract(ctx, sess, text, placement.CompanyName)
	if err != nil {
		log.Warn("follow-up extraction failed", zap.String("company", placement.CompanyName), zap.Error(err))
		return Suggestion{}, true, err
	}
	log.Info("follow-up suggestion ready", zap.String("placement_id", placement.ID), zap.String("company", placement.CompanyName))
	return Suggestion{
		MessageID:   msg.Id,
		Subject:     subject,
		From:        sender,
		PlacementID: placement.ID,
		Company:     placement.CompanyName,
		Candidate:   candidate,
	}, true, nil
}

// retry runs f with exponential backoff. An expired history id fails fast so
// the caller can switch to a full sync.
func (s *InboxService) retry(ctx context.Context, attempts int, f func() error) error {
	sleep := s.RetrySleep
	var err error
	for i := 0; i < attempts; i++ {
		if err = f(); err == nil {
			return nil
		}
		if isHistoryExpiredError(err) || i == attempts-1 {
			break
		}
		s.log.Warn("gmail API error, retrying", zap.Error(err), zap.Duration("backoff", sleep))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		sleep *= 2
	}
	if isHistoryExpiredError(err) {
		return err
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

func isHistoryExpiredError(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusNotFound
}

func parseHeaders(msg *gmail.Message) map[string]string {
	res := make(map[string]string)
	if msg.Payload == nil {
		return res
	}
	for _, h := range msg.Payload.Headers {
		res[strings.ToLower(h.Name)] = h.Value
	}
	return res
}

// getEmailBody prefers text/plain over text/html, searching nested multiparts.
func getEmailBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBody(msg.Payload.Body.Data)
	}
	if body := findPart(msg.Payload.Parts, "text/plain"); body != "" {
		return body
	}
	return findPart(msg.Payload.Parts, "text/html")
}

func findPart(parts []*gmail.MessagePart, mimeType string) string {
	for _, part := range parts {
		if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
			return decodeBody(part.Body.Data)
		}
		if body := findPart(part.Parts, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func decodeBody(data string) string {
	if d, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(d)
	}
	d, _ := base64.RawURLEncoding.DecodeString(data)
	return string(d)
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return truncateUTF8(s, n) + "..."
}
