package ingestion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/fmuoria/doc-compare-agent/internal/logging"
)

// ProgressFunc reports progress of a long-running fetch
type ProgressFunc func(current, total int, message string)

// GmailOptions locates the OAuth files and the directory attachments are written to
type GmailOptions struct {
	CredentialsPath string
	TokenPath       string
	UploadsDir      string
}

// GmailHandler fetches response documents sent as email attachments
type GmailHandler struct {
	service    *gmail.Service
	uploadsDir string
	progress   ProgressFunc
	logger     *slog.Logger
}

// NewGmailHandlerWithCallback creates a Gmail handler, running the OAuth flow if no token is cached
func NewGmailHandlerWithCallback(ctx context.Context, opts GmailOptions, progress ProgressFunc, logger *slog.Logger) (*GmailHandler, error) {
	if opts.CredentialsPath == "" {
		opts.CredentialsPath = "credentials.json"
	}
	if opts.TokenPath == "" {
		opts.TokenPath = "token.json"
	}

	b, err := os.ReadFile(opts.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	client, err := getClient(ctx, config, opts.TokenPath)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail client: %w", err)
	}

	return newGmailHandler(srv, opts.UploadsDir, progress, logger), nil
}

func newGmailHandler(srv *gmail.Service, uploadsDir string, progress ProgressFunc, logger *slog.Logger) *GmailHandler {
	return &GmailHandler{
		service:    srv,
		uploadsDir: uploadsDir,
		progress:   progress,
		logger:     logging.OrDiscard(logger),
	}
}

// getClient retrieves a cached token or runs the browser flow, then returns the generated client
func getClient(ctx context.Context, config *oauth2.Config, tokFile string) (*http.Client, error) {
	tok, err := tokenFromFile(tokFile)
	if err != nil {
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokFile, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(ctx, tok), nil
}

// getTokenFromWeb requests a token from the web
func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// saveToken saves a token to a file path
func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func (gh *GmailHandler) report(current, total int, message string) {
	if gh.progress != nil {
		gh.progress(current, total, message)
	}
}

// FetchAttachmentsWithContext downloads supported attachments of messages with the given subject.
// Files are written as "<Sender>_<filename>" so FileHandler.LoadResponses names them by sender.
func (gh *GmailHandler) FetchAttachmentsWithContext(ctx context.Context, subject string) (int, error) {
	if err := os.MkdirAll(gh.uploadsDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	user := "me"
	query := fmt.Sprintf("subject:%s has:attachment", subject)

	r, err := gh.service.Users.Messages.List(user).Q(query).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to retrieve messages: %w", err)
	}

	if len(r.Messages) == 0 {
		return 0, fmt.Errorf("no messages found with subject: %s", subject)
	}

	saved := 0
	for i, msg := range r.Messages {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		gh.report(i, len(r.Messages), fmt.Sprintf("Fetching message %d/%d", i+1, len(r.Messages)))

		message, err := gh.service.Users.Messages.Get(user, msg.Id).Context(ctx).Do()
		if err != nil {
			gh.logger.Warn("unable to retrieve message", slog.String("message_id", msg.Id), slog.Any("error", err))
			continue
		}

		senderName := extractSenderName(message)

		for _, part := range attachmentParts(message.Payload) {
			if !SupportedExtension(part.Filename) {
				gh.logger.Info("skipping unsupported attachment", slog.String("file", part.Filename))
				continue
			}

			attachment, err := gh.service.Users.Messages.Attachments.Get(user, msg.Id, part.Body.AttachmentId).Context(ctx).Do()
			if err != nil {
				gh.logger.Warn("unable to retrieve attachment", slog.String("file", part.Filename), slog.Any("error", err))
				continue
			}

			data, err := base64.URLEncoding.DecodeString(attachment.Data)
			if err != nil {
				gh.logger.Warn("unable to decode attachment", slog.String("file", part.Filename), slog.Any("error", err))
				continue
			}

			newFilename := fmt.Sprintf("%s_%s", senderName, filepath.Base(part.Filename))
			filePath := filepath.Join(gh.uploadsDir, newFilename)
			if err := os.WriteFile(filePath, data, 0644); err != nil {
				gh.logger.Warn("unable to write attachment", slog.String("path", filePath), slog.Any("error", err))
				continue
			}

			saved++
			gh.logger.Info("downloaded attachment", slog.String("file", newFilename))
		}
	}

	gh.report(len(r.Messages), len(r.Messages), fmt.Sprintf("Downloaded %d attachments", saved))
	return saved, nil
}

// attachmentParts walks the MIME tree and returns parts carrying attachments
func attachmentParts(part *gmail.MessagePart) []*gmail.MessagePart {
	if part == nil {
		return nil
	}
	var out []*gmail.MessagePart
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		out = append(out, part)
	}
	for _, p := range part.Parts {
		out = append(out, attachmentParts(p)...)
	}
	return out
}

// extractSenderName extracts the sender's name from email headers
func extractSenderName(message *gmail.Message) string {
	if message.Payload == nil {
		return "Unknown"
	}
	for _, header := range message.Payload.Headers {
		if header.Name == "From" {
			// Parse "Name <email@example.com>" format
			from := header.Value
			if idx := strings.Index(from, "<"); idx > 0 {
				name := strings.TrimSpace(strings.Trim(strings.TrimSpace(from[:idx]), `"`))
				return strings.ReplaceAll(name, " ", "")
			}
			if idx := strings.Index(from, "@"); idx > 0 {
				return from[:idx]
			}
			return "Unknown"
		}
	}
	return "Unknown"
}
