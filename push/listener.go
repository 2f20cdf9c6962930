// Package push carries new-log notifications over a WebSocket channel: Hub is
// the server side fan-out and Listener is the client side.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/logs"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const maxFrameBytes = 1 << 20

// Event is one message received on the channel. Log is nil when the frame
// is not a log entry.
type Event struct {
	Log *logs.Log
	Raw json.RawMessage
}

type Listener struct {
	url        string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	log        zerolog.Logger
}

type Option func(*Listener)

func WithLogger(log zerolog.Logger) Option {
	return func(l *Listener) {
		l.log = log
	}
}

// WithHTTPClient sets the client used for the opening handshake.
func WithHTTPClient(hc *http.Client) Option {
	return func(l *Listener) {
		l.httpClient = hc
	}
}

func NewListener(cfg config.PushConfig, ts oauth2.TokenSource, opts ...Option) (*Listener, error) {
	u, err := url.Parse(cfg.GetPushURL())
	if err != nil {
		return nil, fmt.Errorf("invalid push URL %q: %w", cfg.GetPushURL(), err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid push URL %q: scheme must be ws or wss", cfg.GetPushURL())
	}
	if ts == nil {
		return nil, errors.New("push.NewListener: token source is required")
	}

	l := &Listener{url: u.String(), tokens: ts, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Listen connects and calls handle for every frame until ctx is done or the
// server closes the channel. Neither of those is reported as an error.
func (l *Listener) Listen(ctx context.Context, handle func(Event)) error {
	tok, err := l.tokens.Token()
	if err != nil {
		return fmt.Errorf("push token: %w", err)
	}

	u, _ := url.Parse(l.url)
	q := u.Query()
	q.Set("token", tok.AccessToken)
	u.RawQuery = q.Encode()

	h := http.Header{}
	h.Set("Authorization", tok.Type()+" "+tok.AccessToken)

	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPClient: l.httpClient,
		HTTPHeader: h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("push handshake rejected: %s", resp.Status)
		}
		return fmt.Errorf("push dial %s: %w", l.url, err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	conn.SetReadLimit(maxFrameBytes)
	l.log.Debug().Str("url", l.url).Msg("push.connected")

	for {
		mt, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				l.log.Debug().Err(err).Msg("push.closed")
				return nil
			}
			return fmt.Errorf("push read: %w", err)
		}
		if mt != websocket.MessageText && mt != websocket.MessageBinary {
			continue
		}
		handle(decodeEvent(data))
	}
}

func decodeEvent(data []byte) Event {
	ev := Event{Raw: json.RawMessage(data)}
	var entry logs.Log
	if err := json.Unmarshal(data, &entry); err == nil && entry.ID != 0 {
		ev.Log = &entry
	}
	return ev
}
