// Package sender holds the direct-send capability for channels the server
// can reach itself. The provider wire protocols are not modeled here; each
// sender is a thin adapter over one provider endpoint.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/funnelreach/dispatch-backend/internal/model"
)

// Sender delivers one rendered task. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, task *model.DispatchTask) error
}

// Registry maps a channel to its sender.
type Registry map[model.Channel]Sender

func (r Registry) For(c model.Channel) (Sender, bool) {
	s, ok := r[c]
	return s, ok
}

// HTTPSender posts the message to a provider webhook. Covers the SMS and
// email providers, which both expose simple JSON ingestion endpoints.
type HTTPSender struct {
	URL    string
	Client *http.Client
}

func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, task *model.DispatchTask) error {
	payload, err := json.Marshal(map[string]string{
		"to":      task.ContactHandle,
		"message": task.RenderedMessage,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return nil
}
