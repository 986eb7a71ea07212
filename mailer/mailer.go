// Package mailer sends notification email through Azure Communication
// Services over its REST API.
package mailer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	neturl "net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ytsum/ytsum/gemini"
)

// ErrSend indicates a failed email send.
var ErrSend = errors.New("email send failed")

const (
	apiVersion     = "2023-03-31"
	defaultTimeout = 30 * time.Second
)

// Client sends email through an ACS resource. Requests are signed with the
// resource access key (HMAC-SHA256 over verb, path, date, host, and body
// hash), which is what the official SDK does under the hood.
type Client struct {
	http      *resty.Client
	endpoint  *neturl.URL
	accessKey []byte
	from      string
	to        string
}

// ParseConnectionString splits an ACS connection string of the form
// "endpoint=https://...;accesskey=..." into its parts.
func ParseConnectionString(cs string) (endpoint, accessKey string, err error) {
	for _, segment := range strings.Split(cs, ";") {
		key, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "endpoint":
			endpoint = strings.TrimSpace(value)
		case "accesskey":
			// The access key is base64 and may itself contain '='; Cut
			// only split on the first one so value is intact.
			accessKey = strings.TrimSpace(value)
		}
	}
	if endpoint == "" || accessKey == "" {
		return "", "", fmt.Errorf("connection string must contain endpoint and accesskey")
	}
	return endpoint, accessKey, nil
}

// NewClient builds a mailer from an ACS connection string and the fixed
// sender/recipient pair.
func NewClient(connectionString, from, to string) (*Client, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("from and to addresses cannot be empty")
	}

	endpoint, accessKey, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	endpointURL, err := neturl.Parse(endpoint)
	if err != nil || endpointURL.Host == "" {
		return nil, fmt.Errorf("invalid ACS endpoint %q", endpoint)
	}

	key, err := base64.StdEncoding.DecodeString(accessKey)
	if err != nil {
		return nil, fmt.Errorf("invalid ACS access key: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(endpoint, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", "ytsum/1.0")

	return &Client{
		http:      httpClient,
		endpoint:  endpointURL,
		accessKey: key,
		from:      from,
		to:        to,
	}, nil
}

type sendRequest struct {
	SenderAddress string         `json:"senderAddress"`
	Recipients    recipients     `json:"recipients"`
	Content       messageContent `json:"content"`
}

type recipients struct {
	To []address `json:"to"`
}

type address struct {
	Address string `json:"address"`
}

type messageContent struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendSuccess emails a summary notification, linking the Notion page when
// one was created.
func (c *Client) SendSuccess(ctx context.Context, summary *gemini.Summary, notionURL string) error {
	subject := fmt.Sprintf("Video summarized: %s", summary.Title)
	if summary.Title == "" {
		subject = "Video summarized"
	}
	return c.send(ctx, subject, successHTML(summary, notionURL))
}

// SendFailure emails a failure report (markdown rendered preformatted).
func (c *Client) SendFailure(ctx context.Context, report string) error {
	body := fmt.Sprintf("<html><body><h2>Summarization failed</h2><pre>%s</pre></body></html>", html.EscapeString(report))
	return c.send(ctx, "Video summarization failed", body)
}

func (c *Client) send(ctx context.Context, subject, htmlBody string) error {
	payload, err := json.Marshal(sendRequest{
		SenderAddress: c.from,
		Recipients:    recipients{To: []address{{Address: c.to}}},
		Content:       messageContent{Subject: subject, HTML: htmlBody},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	pathAndQuery := "/emails:send?api-version=" + apiVersion
	date := time.Now().UTC().Format(http1123)
	contentHash := hashBody(payload)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-ms-date", date).
		SetHeader("x-ms-content-sha256", contentHash).
		SetHeader("Authorization", c.authorization("POST", pathAndQuery, date, contentHash)).
		SetBody(payload).
		Post(pathAndQuery)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: HTTP %d: %s", ErrSend, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// http1123 is RFC1123 with an explicit GMT zone, as the signature scheme
// requires.
const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// authorization computes the ACS HMAC-SHA256 authorization header over
// verb, path+query, date, host, and the body hash.
func (c *Client) authorization(verb, pathAndQuery, date, contentHash string) string {
	stringToSign := fmt.Sprintf("%s\n%s\n%s;%s;%s", verb, pathAndQuery, date, c.endpoint.Host, contentHash)

	mac := hmac.New(sha256.New, c.accessKey)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature=%s", signature)
}

// successHTML renders the success notification body.
func successHTML(summary *gemini.Summary, notionURL string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h2>Video summarized</h2>")
	if summary.Title != "" {
		fmt.Fprintf(&b, "<p><strong>%s</strong></p>", html.EscapeString(summary.Title))
	}
	if summary.URL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Watch on YouTube</a></p>`, html.EscapeString(summary.URL))
	}
	if summary.BriefSummary != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(summary.BriefSummary))
	}
	if len(summary.SummaryBullets) > 0 {
		b.WriteString("<ul>")
		for _, bullet := range summary.SummaryBullets {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(bullet))
		}
		b.WriteString("</ul>")
	}
	if notionURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Open in Notion</a></p>`, html.EscapeString(notionURL))
	}
	b.WriteString("</body></html>")
	return b.String()
}
