// Package linesource implements the MessageSource port over a line-oriented
// reader (stdin, a replay file). Lines of the form "trader|text" carry a
// trader attribution; bare lines arrive unattributed.
package linesource

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"signalSimBot/internal/domain"
)

// Source reads one message per line.
type Source struct {
	r        io.Reader
	sourceID string
}

// New creates a line source over the given reader.
func New(r io.Reader, sourceID string) *Source {
	return &Source{r: r, sourceID: sourceID}
}

// Messages returns a channel of inbound messages. The channel is closed when
// the reader is exhausted or the context is canceled.
func (s *Source) Messages(ctx context.Context) (<-chan domain.RawMessage, error) {
	out := make(chan domain.RawMessage)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(s.r)
		scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			msg := domain.RawMessage{
				SourceID:   s.sourceID,
				Text:       line,
				ReceivedAt: time.Now().UTC(),
			}
			if idx := strings.Index(line, "|"); idx > 0 {
				msg.TraderIDHint = line[:idx]
				msg.Text = strings.TrimSpace(line[idx+1:])
			}
			// Multi-line calls are flattened to one line with literal \n.
			msg.Text = strings.ReplaceAll(msg.Text, `\n`, "\n")
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
