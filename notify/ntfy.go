package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mklimuk/chargemon/charger"
)

const defaultNtfyTimeout = 5 * time.Second

// Ntfy posts the event body to an ntfy topic URL (e.g. https://ntfy.sh/mytopic).
type Ntfy struct {
	url    string
	client *http.Client
}

func NewNtfy(url string, client *http.Client) *Ntfy {
	if client == nil {
		client = &http.Client{Timeout: defaultNtfyTimeout}
	}
	return &Ntfy{url: url, client: client}
}

func (n *Ntfy) URL() string {
	return n.url
}

func (n *Ntfy) Notify(ctx context.Context, event charger.Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, strings.NewReader(Body(event)))
	if err != nil {
		return fmt.Errorf("ntfy: could not build request: %w", err)
	}
	req.Header.Set("Title", Title(event))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy: post failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ntfy: unexpected status %s", resp.Status)
	}
	return nil
}
