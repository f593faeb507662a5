// Package chatfeed drives the polling loop behind a chat view: a fixed-rate
// fetch of the feed snapshot, serialized sends, and owner actions that force
// an immediate re-fetch instead of mutating local state optimistically.
package chatfeed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"solcast/internal/models"
	"solcast/internal/service"
)

// DefaultInterval is the fixed delay between feed fetches.
const DefaultInterval = 2 * time.Second

const defaultLimit = 50

var (
	ErrAlreadyStarted  = errors.New("poller already started")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrChatUnavailable = errors.New("chat is not available")
	ErrSendInFlight    = errors.New("a send is already in flight")
)

// State is the poller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateSending
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateSending:
		return "sending"
	default:
		return "idle"
	}
}

// Client is the chat backend the poller talks to. *service.ChatService
// satisfies it.
type Client interface {
	GetFeed(ctx context.Context, streamID, viewerID uint, limit int) (*service.ChatFeed, error)
	SendMessage(ctx context.Context, streamID, senderID uint, text string, solcitos int64) (*models.ChatMessage, error)
	UpdateSettings(ctx context.Context, streamID, requesterID uint, settings *models.ChatSettings) (*models.ChatSettings, error)
	DeleteMessage(ctx context.Context, streamID, requesterID, messageID uint) error
	ClearMessages(ctx context.Context, streamID, requesterID uint) error
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides the fetch interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithLimit overrides how many messages each fetch asks for.
func WithLimit(n int) Option {
	return func(p *Poller) { p.limit = n }
}

// WithOnFeed sets the callback invoked with every fetched snapshot.
func WithOnFeed(fn func(*service.ChatFeed)) Option {
	return func(p *Poller) { p.onFeed = fn }
}

// WithOnError sets the callback invoked when a fetch fails. Fetch errors do
// not stop the loop; the next tick retries.
func WithOnError(fn func(error)) Option {
	return func(p *Poller) { p.onError = fn }
}

// Poller keeps one viewer's chat feed for one stream fresh. It is bound to
// the view's lifetime: Start begins the loop, Stop (or cancelling the Start
// context) ends it.
type Poller struct {
	client   Client
	streamID uint
	viewerID uint
	interval time.Duration
	limit    int
	onFeed   func(*service.ChatFeed)
	onError  func(error)

	mu      sync.Mutex
	state   State
	latest  *service.ChatFeed
	sending bool
	cancel  context.CancelFunc

	kick chan struct{}
	done chan struct{}
}

// NewPoller returns a stopped poller for the given stream and viewer.
// viewerID may be zero for anonymous viewers.
func NewPoller(client Client, streamID, viewerID uint, opts ...Option) *Poller {
	p := &Poller{
		client:   client,
		streamID: streamID,
		viewerID: viewerID,
		interval: DefaultInterval,
		limit:    defaultLimit,
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Latest returns the most recently fetched snapshot, or nil before the first
// successful fetch.
func (p *Poller) Latest() *service.ChatFeed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Start launches the polling loop: one immediate fetch, then one per
// interval until the context is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.state = StatePolling
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.loop(ctx)
	}()
	return nil
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	p.mu.Lock()
	p.state = StateIdle
	p.mu.Unlock()
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx)
		case <-p.kick:
			p.fetch(ctx)
		}
	}
}

func (p *Poller) fetch(ctx context.Context) {
	feed, err := p.client.GetFeed(ctx, p.streamID, p.viewerID, p.limit)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.WarnContext(ctx, "chat feed fetch failed",
			"stream_id", p.streamID, "error", err)
		if p.onError != nil {
			p.onError(err)
		}
		return
	}

	p.mu.Lock()
	p.latest = feed
	p.mu.Unlock()

	if p.onFeed != nil {
		p.onFeed(feed)
	}
}

// refresh asks the loop for an immediate fetch without waiting for the next
// tick. No-op when one is already queued.
func (p *Poller) refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Send submits a message, optionally with a solcito gift attached. Blank
// messages and sends into a chat the last snapshot marked unavailable are
// rejected without touching the backend. Only one send may be in flight at a
// time; a successful send schedules an immediate refresh.
func (p *Poller) Send(ctx context.Context, text string, solcitos int64) (*models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	p.mu.Lock()
	if p.sending {
		p.mu.Unlock()
		return nil, ErrSendInFlight
	}
	if p.latest != nil && !p.latest.CanChat {
		p.mu.Unlock()
		return nil, ErrChatUnavailable
	}
	p.sending = true
	p.state = StateSending
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.sending = false
		if p.cancel != nil {
			p.state = StatePolling
		} else {
			p.state = StateIdle
		}
		p.mu.Unlock()
	}()

	msg, err := p.client.SendMessage(ctx, p.streamID, p.viewerID, text, solcitos)
	if err != nil {
		return nil, err
	}
	p.refresh()
	return msg, nil
}

// UpdateSettings applies new chat settings and re-fetches the feed.
func (p *Poller) UpdateSettings(ctx context.Context, settings *models.ChatSettings) (*models.ChatSettings, error) {
	updated, err := p.client.UpdateSettings(ctx, p.streamID, p.viewerID, settings)
	if err != nil {
		return nil, err
	}
	p.refresh()
	return updated, nil
}

// DeleteMessage removes one message and re-fetches the feed.
func (p *Poller) DeleteMessage(ctx context.Context, messageID uint) error {
	if err := p.client.DeleteMessage(ctx, p.streamID, p.viewerID, messageID); err != nil {
		return err
	}
	p.refresh()
	return nil
}

// Clear wipes the chat history and re-fetches the feed.
func (p *Poller) Clear(ctx context.Context) error {
	if err := p.client.ClearMessages(ctx, p.streamID, p.viewerID); err != nil {
		return err
	}
	p.refresh()
	return nil
}
