// Package handshake drives the popup based Google Drive linking flow in the
// browser. A Handshake is a single attempt: once it reaches Linked, Error or
// Cancelled it is finished and a new attempt needs a new Handshake.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Message types posted by the OAuth callback page.
const (
	MessageAuthCode  = "googleAuthCode"
	MessageAuthError = "googleAuthError"
)

// DefaultPollInterval is how often the popup is checked for having been closed.
const DefaultPollInterval = time.Second

var (
	ErrInProgress    = errors.New("handshake already started")
	ErrPopupBlocked  = errors.New("popup could not be opened")
	ErrStateMismatch = errors.New("authorization state does not match the current user")
	ErrAuthDenied    = errors.New("authorization was denied")
)

// State of a handshake.
type State int

const (
	Idle State = iota
	AwaitingCallback
	Exchanging
	Linked
	Error
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCallback:
		return "awaiting_callback"
	case Exchanging:
		return "exchanging"
	case Linked:
		return "linked"
	case Error:
		return "error"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == Linked || s == Error || s == Cancelled
}

// Message is a cross-window message as received by the hosting page.
type Message struct {
	Origin string
	Type   string
	Code   string
	State  string
	Error  string
}

// Broker is the backend OAuth broker as seen from the browser.
type Broker interface {
	AuthURL(ctx context.Context) (string, error)
	Exchange(ctx context.Context, code string) error
}

// Popup is a window opened by the hosting page.
type Popup interface {
	Closed() bool
	Close()
}

// Window is the hosting page.
type Window interface {
	// Origin is the page's own origin; only messages from it are accepted.
	Origin() string
	OpenPopup(url string) (Popup, error)
	// Listen registers fn for cross-window messages and returns its removal.
	Listen(fn func(Message)) (remove func())
	// Every calls fn every d until stop is called.
	Every(d time.Duration, fn func()) (stop func())
}

// Transition is reported to the OnTransition observer.
type Transition struct {
	From State
	To   State
	Err  error
}

// Option configures a Handshake.
type Option func(*Handshake)

// WithLogger sets the logger used for rejected messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Handshake) { h.log = l }
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(h *Handshake) { h.pollInterval = d }
}

// OnTransition registers fn to be called after every state change. fn runs
// outside the handshake's lock and may query it.
func OnTransition(fn func(Transition)) Option {
	return func(h *Handshake) { h.observer = fn }
}

// Handshake links the Drive of one user.
type Handshake struct {
	userID       string
	broker       Broker
	win          Window
	log          logrus.FieldLogger
	pollInterval time.Duration
	observer     func(Transition)

	mu             sync.Mutex
	state          State
	err            error
	starting       bool
	ctx            context.Context
	popup          Popup
	removeListener func()
	stopPoll       func()
	pending        []Transition
}

// New returns an Idle handshake for userID.
func New(userID string, broker Broker, win Window, opts ...Option) *Handshake {
	h := &Handshake{
		userID:       userID,
		broker:       broker,
		win:          win,
		log:          logrus.StandardLogger(),
		pollInterval: DefaultPollInterval,
		ctx:          context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// State returns the current state.
func (h *Handshake) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the reason the handshake ended in Error, if it did.
func (h *Handshake) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Start asks the broker for the consent URL and opens the popup. It blocks for
// the broker call; the rest of the flow is driven by HandleMessage, the popup
// poll and the exchange result.
func (h *Handshake) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.state != Idle || h.starting {
		h.mu.Unlock()
		return ErrInProgress
	}
	h.starting = true
	h.ctx = ctx
	h.mu.Unlock()

	url, err := h.broker.AuthURL(ctx)
	h.dispatch(authURLEvent{url: url, err: err})
	return nil
}

// HandleMessage feeds a cross-window message into the handshake. An accepted
// authorization code triggers the exchange, which runs before HandleMessage
// returns.
func (h *Handshake) HandleMessage(msg Message) {
	h.dispatch(messageEvent{msg: msg})
}

// CheckPopup cancels the handshake if the user closed the popup before the
// callback page delivered a result.
func (h *Handshake) CheckPopup() {
	h.dispatch(pollEvent{})
}

// Cancel aborts a running handshake.
func (h *Handshake) Cancel() {
	h.dispatch(cancelEvent{})
}

type event interface{ isEvent() }

type authURLEvent struct {
	url string
	err error
}

type messageEvent struct{ msg Message }

type pollEvent struct{}

type exchangeEvent struct{ err error }

type cancelEvent struct{}

func (authURLEvent) isEvent()  {}
func (messageEvent) isEvent()  {}
func (pollEvent) isEvent()     {}
func (exchangeEvent) isEvent() {}
func (cancelEvent) isEvent()   {}

// dispatch applies ev under the lock, then reports transitions and runs the
// follow-up effect, if any, without holding it.
func (h *Handshake) dispatch(ev event) {
	h.mu.Lock()
	effect := h.transition(ev)
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	if h.observer != nil {
		for _, t := range pending {
			h.observer(t)
		}
	}
	if effect != nil {
		effect()
	}
}

func (h *Handshake) transition(ev event) func() {
	switch ev := ev.(type) {
	case authURLEvent:
		if h.state != Idle {
			return nil
		}
		h.starting = false
		if ev.err != nil {
			h.finish(Error, fmt.Errorf("get authorization url: %w", ev.err))
			return nil
		}
		popup, err := h.win.OpenPopup(ev.url)
		if err != nil || popup == nil {
			h.finish(Error, errors.Join(ErrPopupBlocked, err))
			return nil
		}
		h.popup = popup
		h.removeListener = h.win.Listen(h.HandleMessage)
		h.stopPoll = h.win.Every(h.pollInterval, h.CheckPopup)
		h.setState(AwaitingCallback, nil)

	case messageEvent:
		if h.state != AwaitingCallback {
			return nil
		}
		return h.accept(ev.msg)

	case pollEvent:
		if h.state == AwaitingCallback && h.popup != nil && h.popup.Closed() {
			h.finish(Cancelled, nil)
		}

	case exchangeEvent:
		if h.state != Exchanging {
			return nil
		}
		if ev.err != nil {
			h.finish(Error, fmt.Errorf("exchange authorization code: %w", ev.err))
			return nil
		}
		h.finish(Linked, nil)

	case cancelEvent:
		if !h.state.Terminal() {
			h.starting = false
			h.finish(Cancelled, nil)
		}
	}
	return nil
}

// accept handles a message received while awaiting the callback.
func (h *Handshake) accept(msg Message) func() {
	if msg.Origin != h.win.Origin() {
		h.log.WithField("origin", msg.Origin).Warn("ignoring message from foreign origin")
		return nil
	}

	switch msg.Type {
	case MessageAuthError:
		if msg.State != h.userID {
			h.finish(Error, ErrStateMismatch)
			return nil
		}
		h.finish(Error, fmt.Errorf("%w: %s", ErrAuthDenied, msg.Error))
		return nil
	case MessageAuthCode:
	default:
		return nil
	}

	if msg.State != h.userID {
		h.log.Warn("authorization state mismatch")
		h.finish(Error, ErrStateMismatch)
		return nil
	}
	if msg.Code == "" {
		h.log.Warn("ignoring authorization message without code")
		return nil
	}

	// The callback page closes the popup itself; stop watching it.
	h.stopPolling()
	h.setState(Exchanging, nil)

	ctx, code := h.ctx, msg.Code
	return func() {
		err := h.broker.Exchange(ctx, code)
		h.dispatch(exchangeEvent{err: err})
	}
}

func (h *Handshake) setState(to State, err error) {
	h.pending = append(h.pending, Transition{From: h.state, To: to, Err: err})
	h.state = to
	h.err = err
}

// finish moves to a terminal state and releases every resource. Each release
// runs at most once.
func (h *Handshake) finish(to State, err error) {
	h.setState(to, err)
	if h.removeListener != nil {
		h.removeListener()
		h.removeListener = nil
	}
	h.stopPolling()
	if h.popup != nil {
		if !h.popup.Closed() {
			h.popup.Close()
		}
		h.popup = nil
	}
}

func (h *Handshake) stopPolling() {
	if h.stopPoll != nil {
		h.stopPoll()
		h.stopPoll = nil
	}
}
