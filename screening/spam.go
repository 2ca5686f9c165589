package screening

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rookery-social/rookery/util"
)

// SpamClient talks to an Akismet-style comment-check service: a
// form-encoded POST whose response body is the literal string "true" for
// spam or "false" otherwise.
type SpamClient struct {
	Client  *http.Client
	Host    string
	APIKey  string
	SiteURL string
}

func NewSpamClient(host, apiKey, siteURL string) *SpamClient {
	return &SpamClient{
		Client:  util.RobustHTTPClient(),
		Host:    host,
		APIKey:  apiKey,
		SiteURL: siteURL,
	}
}

// AuthorMeta carries the request metadata the comment-check call wants
// about the submitting account.
type AuthorMeta struct {
	Username     string
	EmailAddress string
	RemoteIP     string
	UserAgent    string
}

func (sc *SpamClient) Check(ctx context.Context, author AuthorMeta, content string) (bool, error) {
	form := url.Values{}
	form.Set("api_key", sc.APIKey)
	form.Set("blog", sc.SiteURL)
	form.Set("user_ip", author.RemoteIP)
	form.Set("user_agent", author.UserAgent)
	form.Set("comment_type", "forum-post")
	form.Set("comment_author", author.Username)
	form.Set("comment_author_email", author.EmailAddress)
	form.Set("comment_content", content)

	req, err := http.NewRequestWithContext(ctx, "POST", sc.Host+"/1.1/comment-check", strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	defer func() {
		spamAPIDuration.Observe(time.Since(start).Seconds())
	}()

	res, err := sc.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("spam check request failed: %w", err)
	}
	defer res.Body.Close()

	spamAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != 200 {
		return false, fmt.Errorf("spam check failed statusCode=%d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1024))
	if err != nil {
		return false, fmt.Errorf("reading spam check response: %w", err)
	}

	switch strings.TrimSpace(string(body)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected spam check response: %q", string(body))
	}
}
