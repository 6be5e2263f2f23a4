// Package graph provides a client for the Microsoft Graph mail and drive
// endpoints used by the lead pipeline and the market snapshot.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2/clientcredentials"
)

// Message is one mailbox item as returned by the messages endpoint.
type Message struct {
	ID       string
	Subject  string
	BodyHTML string
	Sender   string
}

// Client defines the Microsoft Graph operations used by this application.
type Client interface {
	// ListUnreadMessages returns the current unread messages from the given
	// sender, a finite snapshot at call time.
	ListUnreadMessages(ctx context.Context, sender string) ([]Message, error)
	// MarkRead sets the message's read flag. Idempotent upstream.
	MarkRead(ctx context.Context, messageID string) error
	// SendMail sends an HTML mail from the configured mailbox.
	SendMail(ctx context.Context, subject, htmlBody string, to []string) error
	// DownloadFile fetches a OneDrive file by drive path.
	DownloadFile(ctx context.Context, path string) ([]byte, error)
	// UploadFile writes a OneDrive file by drive path, replacing any
	// existing content.
	UploadFile(ctx context.Context, path string, content []byte) error
}

// Settings holds the app-registration credentials for the client-credential
// token exchange plus the mailbox user the app acts on.
type Settings struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	UserEmail    string
}

// Option configures the Graph client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client, bypassing the OAuth2 transport
// (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	userEmail string
	baseURL   string
	http      *http.Client
}

// NewClient creates a Graph client. Tokens are acquired lazily via the
// client-credentials grant against the tenant's v2.0 token endpoint and
// refreshed by the transport; a failed exchange surfaces on the first call.
func NewClient(s Settings, opts ...Option) Client {
	conf := &clientcredentials.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", s.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	hc := conf.Client(context.Background())
	hc.Timeout = 30 * time.Second

	c := &httpClient{
		userEmail: s.UserEmail,
		baseURL:   "https://graph.microsoft.com/v1.0",
		http:      hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do executes one request and returns the response body and status code.
// No retries: a failed call is surfaced to the caller, which decides whether
// it is fatal for the run or only for the current message.
func (c *httpClient) do(ctx context.Context, method, reqURL string, payload []byte, contentType string) ([]byte, int, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
	if err != nil {
		return nil, 0, eris.Wrap(err, "graph: create request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "graph: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "graph: read response body")
	}
	return body, resp.StatusCode, nil
}

func (c *httpClient) userURL(suffix string) string {
	return fmt.Sprintf("%s/users/%s%s", c.baseURL, url.PathEscape(c.userEmail), suffix)
}

// Wire types for the messages endpoint.
type listResponse struct {
	Value []wireMessage `json:"value"`
}

type wireMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	From struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
}

func (c *httpClient) ListUnreadMessages(ctx context.Context, sender string) ([]Message, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("isRead eq false and from/emailAddress/address eq '%s'", sender))
	q.Set("$select", "id,subject,body,from")
	reqURL := c.userURL("/messages") + "?" + q.Encode()

	body, status, err := c.do(ctx, http.MethodGet, reqURL, nil, "")
	if err != nil {
		return nil, eris.Wrap(err, "graph: list unread messages")
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("graph: list messages status %d: %s", status, string(body))
	}

	var result listResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "graph: unmarshal message list")
	}

	msgs := make([]Message, 0, len(result.Value))
	for _, m := range result.Value {
		msgs = append(msgs, Message{
			ID:       m.ID,
			Subject:  m.Subject,
			BodyHTML: m.Body.Content,
			Sender:   m.From.EmailAddress.Address,
		})
	}
	return msgs, nil
}

func (c *httpClient) MarkRead(ctx context.Context, messageID string) error {
	reqURL := c.userURL("/messages/" + url.PathEscape(messageID))
	payload, _ := json.Marshal(map[string]bool{"isRead": true})

	body, status, err := c.do(ctx, http.MethodPatch, reqURL, payload, "application/json")
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("graph: mark read %s", messageID))
	}
	if status != http.StatusOK {
		return eris.Errorf("graph: mark read %s status %d: %s", messageID, status, string(body))
	}
	return nil
}

// sendMailRequest is the Graph sendMail payload.
type sendMailRequest struct {
	Message sendMailMessage `json:"message"`
}

type sendMailMessage struct {
	Subject      string          `json:"subject"`
	Body         sendMailBody    `json:"body"`
	ToRecipients []mailRecipient `json:"toRecipients"`
}

type sendMailBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type mailRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

func (c *httpClient) SendMail(ctx context.Context, subject, htmlBody string, to []string) error {
	msg := sendMailMessage{
		Subject: subject,
		Body:    sendMailBody{ContentType: "Html", Content: htmlBody},
	}
	for _, addr := range to {
		var r mailRecipient
		r.EmailAddress.Address = addr
		msg.ToRecipients = append(msg.ToRecipients, r)
	}
	payload, err := json.Marshal(sendMailRequest{Message: msg})
	if err != nil {
		return eris.Wrap(err, "graph: marshal sendMail")
	}

	body, status, err := c.do(ctx, http.MethodPost, c.userURL("/sendMail"), payload, "application/json")
	if err != nil {
		return eris.Wrap(err, "graph: send mail")
	}
	if status != http.StatusAccepted {
		return eris.Errorf("graph: send mail status %d: %s", status, string(body))
	}
	return nil
}

// drivePathURL addresses a drive item by path, e.g.
// /users/<user>/drive/root:/Folder/file.xlsx:/content
func (c *httpClient) drivePathURL(path string) string {
	return c.userURL("/drive/root:" + (&url.URL{Path: path}).EscapedPath() + ":/content")
}

func (c *httpClient) DownloadFile(ctx context.Context, path string) ([]byte, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.drivePathURL(path), nil, "")
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("graph: download %s", path))
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("graph: download %s status %d: %s", path, status, string(body))
	}
	return body, nil
}

func (c *httpClient) UploadFile(ctx context.Context, path string, content []byte) error {
	body, status, err := c.do(ctx, http.MethodPut, c.drivePathURL(path), content, "application/octet-stream")
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("graph: upload %s", path))
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return eris.Errorf("graph: upload %s status %d: %s", path, status, string(body))
	}
	return nil
}
