// Package notify delivers failover events to external systems.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dronm/sqlhelper"
)

const defaultHTTPTimeout = 5 * time.Second

// HTTPNotifier posts the event message as plain text to a URL,
// authenticated with a bearer token.
type HTTPNotifier struct {
	URL    string
	Token  string
	Client *http.Client
}

// NewHTTP returns an HTTPNotifier whose client gives up after timeout.
func NewHTTP(url, token string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPNotifier{
		URL:    url,
		Token:  token,
		Client: &http.Client{Timeout: timeout},
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, ev sqlhelper.Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, strings.NewReader(ev.Message()))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post %s: %w", n.URL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: post %s: unexpected status %s", n.URL, resp.Status)
	}
	return nil
}
