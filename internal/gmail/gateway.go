// Package gmail implements the mailbox gateway over the Gmail REST API.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail API quota units per call type, and the pacing budget.
// See https://developers.google.com/gmail/api/v1/reference/quota
const (
	quotaUnitsPerList   = 5
	quotaUnitsPerGet    = 5
	quotaUnitsPerDelete = 10

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond
)

// bodyPrefixLen bounds the stored body text
const bodyPrefixLen = 800

var scopes = []string{
	gmailapi.MailGoogleComScope,
	gmailapi.GmailModifyScope,
}

// Message is the gateway's view of one mailbox message
type Message struct {
	ID         string
	Subject    string
	Sender     string
	Body       string
	SizeBytes  int64
	OccurredAt time.Time
}

// Config holds Gmail client settings
type Config struct {
	CredentialsPath string
	TokenPath       string
	PageSize        int64
	RequestTimeout  time.Duration
}

// Gateway provides paced access to the Gmail API
type Gateway struct {
	service  *gmailapi.Service
	limiter  *rate.Limiter
	pageSize int64
	timeout  time.Duration
	logger   *slog.Logger
}

// Connect builds an authenticated Gmail session from the OAuth client
// credentials and a previously stored token. The interactive consent flow
// is outside this package; a missing or revoked token is a fatal error for
// the caller.
func Connect(ctx context.Context, cfg *Config, logger *slog.Logger) (*Gateway, error) {
	credentials, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read gmail credentials: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(credentials, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gmail credentials: %w", err)
	}

	token, err := tokenFromFile(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load gmail token: %w", err)
	}

	client := oauthConfig.Client(ctx, token)

	service, err := gmailapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	// Verify the session before the worker commits to it.
	if _, err := service.Users.GetProfile("me").Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("failed to verify gmail session: %w", err)
	}

	logger.Info("Gmail session established")

	return &Gateway{
		service:  service,
		limiter:  rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
		pageSize: cfg.PageSize,
		timeout:  cfg.RequestTimeout,
		logger:   logger,
	}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

func (g *Gateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

// ListMessageIDs enumerates message ids matching the query, paginating
// until the mailbox is exhausted or the cap is reached.
func (g *Gateway) ListMessageIDs(ctx context.Context, query string, cap int) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		if err := g.limiter.WaitN(ctx, quotaUnitsPerList); err != nil {
			return nil, err
		}

		call := g.service.Users.Messages.List("me").
			Q(query).
			MaxResults(g.pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		callCtx, cancel := g.callContext(ctx)
		response, err := call.Context(callCtx).Do()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range response.Messages {
			ids = append(ids, m.Id)
		}

		g.logger.Debug("Listed message page",
			slog.Int("page_count", len(response.Messages)),
			slog.Int("total", len(ids)),
		)

		pageToken = response.NextPageToken
		if pageToken == "" || len(ids) >= cap {
			break
		}
	}

	if len(ids) > cap {
		ids = ids[:cap]
	}

	return ids, nil
}

// GetMessage fetches full details for one message
func (g *Gateway) GetMessage(ctx context.Context, id string) (*Message, error) {
	if err := g.limiter.WaitN(ctx, quotaUnitsPerGet); err != nil {
		return nil, err
	}

	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	msg, err := g.service.Users.Messages.Get("me", id).
		Format("full").
		Context(callCtx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return parseMessage(msg), nil
}

// DeleteMessage permanently deletes one message from the provider
func (g *Gateway) DeleteMessage(ctx context.Context, id string) error {
	if err := g.limiter.WaitN(ctx, quotaUnitsPerDelete); err != nil {
		return err
	}

	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	if err := g.service.Users.Messages.Delete("me", id).Context(callCtx).Do(); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}

	return nil
}

// parseMessage extracts the fields the message store keeps. The body is
// the first text/plain part, falling back to the top-level body, truncated
// to a bounded prefix.
func parseMessage(msg *gmailapi.Message) *Message {
	out := &Message{
		ID:        msg.Id,
		Subject:   "Unknown",
		Sender:    "Unknown",
		SizeBytes: msg.SizeEstimate,
	}

	if msg.InternalDate > 0 {
		out.OccurredAt = time.UnixMilli(msg.InternalDate)
	} else {
		out.OccurredAt = time.Now().UTC()
	}

	if msg.Payload == nil {
		return out
	}

	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			out.Subject = h.Value
		case "From":
			out.Sender = h.Value
		}
	}

	body := ""
	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				body = string(decoded)
				break
			}
		}
	}
	if body == "" && msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		if decoded, err := base64.URLEncoding.DecodeString(msg.Payload.Body.Data); err == nil {
			body = string(decoded)
		}
	}

	if len(body) > bodyPrefixLen {
		body = body[:bodyPrefixLen]
	}
	out.Body = body

	return out
}

// QueryBeforeDays builds a Gmail "before:" search expression for messages
// older than the given number of days.
func QueryBeforeDays(now time.Time, days int) string {
	target := now.AddDate(0, 0, -days)
	return "before:" + target.Format("2006/01/02")
}
