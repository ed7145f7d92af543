package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"restaurant-pos/internal/domain"
)

// Sink puts rendered text on paper (or somewhere that stands in for it).
type Sink interface {
	Print(ctx context.Context, kind domain.TicketKind, text string) error
}

// HTTPSink posts tickets to the shop's print server. The body carries both
// the plain text and an HTML <pre> rendition for servers that rasterize HTML.
type HTTPSink struct {
	url    string
	client *http.Client
	tries  uint
}

func NewHTTPSink(url string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSink{url: url, client: &http.Client{Timeout: timeout}, tries: 3}
}

type printJob struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
	HTML string `json:"html"`
}

func (s *HTTPSink) Print(ctx context.Context, kind domain.TicketKind, text string) error {
	body, err := json.Marshal(printJob{
		Kind: string(kind),
		Text: text,
		HTML: `<pre style="font-family:monospace;font-size:12px;margin:0">` + html.EscapeString(text) + `</pre>`,
	})
	if err != nil {
		return err
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return struct{}{}, fmt.Errorf("print server: %s", resp.Status)
		case resp.StatusCode >= 400:
			return struct{}{}, backoff.Permanent(fmt.Errorf("print server rejected ticket: %s", resp.Status))
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(s.tries))
	return err
}

// WriterSink writes tickets to w separated by a cut mark. Used with stdout
// on terminals without a printer and in tests.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) Print(_ context.Context, _ domain.TicketKind, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s\n-- corte --\n\n", text)
	return err
}
