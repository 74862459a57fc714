/*
Package listen keeps one LISTEN connection to a PostgreSQL-family backend and
multiplexes its notifications to in-process subscribers.

	lis := listen.New(listen.Options{Dial: pgxdb.Dialer(`postgres://localhost/app`)})
	defer lis.Close(ctx)

	sub, err := lis.Subscribe(ctx, `events`, func(val listen.Notification) {
		fmt.Println(val.Channel, val.Payload)
	})

The connection is opened by the first subscription and closed when the last
one is closed. A lost connection is redialed with exponential backoff, and
every registered channel is listened to again. Notifications sent while the
connection is down are lost.
*/
package listen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mitranim/sqlkit"
	"golang.org/x/sync/singleflight"
)

// Returned by operations on a closed listener.
var ErrClosed = errors.New(`[sqlkit] listener is closed`)

// Notification as received from the backend.
type Message struct {
	Channel string
	Payload string
}

/*
Dedicated connection used by the listener. The listener never calls `Exec`
while `Receive` is running: it cancels the receive context first. `Receive`
must return promptly after its context is done.
*/
type Conn interface {
	Exec(ctx context.Context, sql string) error
	Receive(ctx context.Context) (Message, error)
	Close(ctx context.Context) error
}

type Dialer func(context.Context) (Conn, error)

// Notification delivered to subscribers. `Payload` is the JSON-decoded
// payload, or the raw text when it's not valid JSON.
type Notification struct {
	Channel string
	Payload any
	Raw     string
}

type State string

const (
	StateDisconnected State = `disconnected`
	StateConnecting   State = `connecting`
	StateConnected    State = `connected`
	StateClosed       State = `closed`
)

type Options struct {
	Dial Dialer

	// Defaults to a discarding logger.
	Logger *slog.Logger

	// Delay between reconnect attempts. Defaults to exponential backoff
	// starting at 1s, doubling up to 30s, without jitter or time limit.
	Backoff backoff.BackOff

	// Optional.
	Metrics *Metrics
}

// Default reconnect policy.
func NewBackOff() backoff.BackOff {
	out := backoff.NewExponentialBackOff()
	out.InitialInterval = time.Second
	out.Multiplier = 2
	out.MaxInterval = 30 * time.Second
	out.RandomizationFactor = 0
	out.MaxElapsedTime = 0
	out.Reset()
	return out
}

/*
Multiplexes notifications of one backend connection. Create with `New`. Safe
for concurrent use.
*/
type Listener struct {
	opts   Options
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	flight singleflight.Group
	queue  dispatcher

	lock  sync.Mutex
	state State
	sess  *session
	subs  map[string][]*Subscription
	order []string
}

func New(opts Options) *Listener {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Backoff == nil {
		opts.Backoff = NewBackOff()
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := &Listener{
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
		state:  StateDisconnected,
		subs:   map[string][]*Subscription{},
	}
	out.queue.init()
	go out.queue.run(ctx, out.deliver)
	return out
}

func (self *Listener) State() State {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.state
}

// Registered channels in registration order.
func (self *Listener) Channels() []string {
	self.lock.Lock()
	defer self.lock.Unlock()
	return append([]string(nil), self.order...)
}

/*
Registers the handler for the channel, connecting first when needed. The first
subscription of a channel issues LISTEN. Concurrent calls during a connect
share one attempt and observe the same error. Handlers run one at a time on a
dispatcher goroutine, in arrival order.
*/
func (self *Listener) Subscribe(ctx context.Context, channel string, fun func(Notification)) (*Subscription, error) {
	if channel == `` {
		return nil, sqlkit.ErrBuilder{
			Err:     sqlkit.MakeErr(`subscribing`, fmt.Errorf(`missing channel`)),
			Builder: `listen`,
			Missing: `channel`,
			Hint:    `pass a channel name`,
		}
	}
	if fun == nil {
		return nil, sqlkit.ErrBuilder{
			Err:     sqlkit.MakeErr(`subscribing`, fmt.Errorf(`missing handler for channel %q`, channel)),
			Builder: `listen`,
			Missing: `handler`,
			Hint:    `pass a notification handler`,
		}
	}

	sess, err := self.connected(ctx)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{listener: self, channel: channel, fun: fun}

	self.lock.Lock()
	if self.state == StateClosed {
		self.lock.Unlock()
		return nil, ErrClosed
	}
	first := len(self.subs[channel]) == 0
	self.subs[channel] = append(self.subs[channel], sub)
	if first {
		self.order = append(self.order, channel)
	}
	self.lock.Unlock()

	if first {
		err := sess.exec(ctx, sqlkit.Listen(channel).String())
		if err != nil {
			self.remove(sub)
			return nil, err
		}
		self.log.Debug(`listening`, `channel`, channel)
	}
	self.opts.Metrics.setChannels(len(self.Channels()))
	return sub, nil
}

// Returns the live session, dialing through the shared flight when needed.
func (self *Listener) connected(ctx context.Context) (*session, error) {
	self.lock.Lock()
	switch {
	case self.state == StateClosed:
		self.lock.Unlock()
		return nil, ErrClosed
	case self.sess != nil:
		sess := self.sess
		self.lock.Unlock()
		return sess, nil
	}
	self.state = StateConnecting
	self.lock.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-self.flight.DoChan(`connect`, func() (any, error) { return self.connect() }):
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*session), nil
	}
}

/*
Dials, starts the session loop and listens to every registered channel.
Failures of individual channels are logged and don't fail the connect.
*/
func (self *Listener) connect() (*session, error) {
	self.lock.Lock()
	if sess := self.sess; sess != nil {
		self.lock.Unlock()
		return sess, nil
	}
	self.lock.Unlock()

	conn, err := self.opts.Dial(self.ctx)
	if err != nil {
		self.lock.Lock()
		if self.state == StateConnecting {
			self.state = StateDisconnected
		}
		self.lock.Unlock()
		return nil, err
	}

	self.lock.Lock()
	if self.state == StateClosed {
		self.lock.Unlock()
		_ = conn.Close(context.Background())
		return nil, ErrClosed
	}
	sess := newSession(self.ctx, conn)
	self.sess = sess
	self.state = StateConnected
	self.opts.Backoff.Reset()
	channels := append([]string(nil), self.order...)
	self.lock.Unlock()

	go self.supervise(sess)

	for _, channel := range channels {
		err := sess.exec(self.ctx, sqlkit.Listen(channel).String())
		if err != nil {
			self.log.Warn(`failed to resubscribe`, `channel`, channel, `err`, err)
		}
	}
	self.log.Info(`connected`, `channels`, len(channels))
	return sess, nil
}

// Runs the session and schedules a reconnect when it fails.
func (self *Listener) supervise(sess *session) {
	err := sess.run(self.queue.push)

	self.lock.Lock()
	if self.sess == sess {
		self.sess = nil
		if self.state != StateClosed {
			self.state = StateDisconnected
		}
	}
	retry := err != nil && !sess.stopped() && self.state != StateClosed && len(self.order) > 0
	self.lock.Unlock()

	if retry {
		self.log.Warn(`connection lost`, `err`, err)
		self.reconnect()
	}
}

func (self *Listener) reconnect() {
	for {
		self.lock.Lock()
		delay := self.opts.Backoff.NextBackOff()
		self.lock.Unlock()

		if delay == backoff.Stop {
			self.log.Error(`giving up reconnecting`)
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-self.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		self.lock.Lock()
		done := self.state == StateClosed || self.sess != nil || len(self.order) == 0
		if !done {
			self.state = StateConnecting
		}
		self.lock.Unlock()
		if done {
			return
		}

		self.opts.Metrics.reconnected()
		res := <-self.flight.DoChan(`connect`, func() (any, error) { return self.connect() })
		if res.Err == nil {
			return
		}
		if errors.Is(res.Err, ErrClosed) {
			return
		}
		self.log.Warn(`reconnect failed`, `err`, res.Err, `delay`, delay)
	}
}

func (self *Listener) deliver(msg Message) {
	val := Notification{Channel: msg.Channel, Raw: msg.Payload}
	if json.Unmarshal([]byte(msg.Payload), &val.Payload) != nil {
		val.Payload = msg.Payload
	}

	self.lock.Lock()
	subs := append([]*Subscription(nil), self.subs[msg.Channel]...)
	self.lock.Unlock()

	self.opts.Metrics.received(msg.Channel)
	for _, sub := range subs {
		if !sub.isClosed() {
			sub.fun(val)
		}
	}
}

// Unregisters the subscription. Returns the session and what became empty.
func (self *Listener) remove(sub *Subscription) (sess *session, lastOfChannel, lastOverall bool) {
	self.lock.Lock()
	defer self.lock.Unlock()

	if sub.closed {
		return nil, false, false
	}
	sub.closed = true

	subs := self.subs[sub.channel]
	for ind, val := range subs {
		if val == sub {
			subs = append(subs[:ind:ind], subs[ind+1:]...)
			break
		}
	}

	if len(subs) > 0 {
		self.subs[sub.channel] = subs
		return self.sess, false, false
	}

	delete(self.subs, sub.channel)
	for ind, val := range self.order {
		if val == sub.channel {
			self.order = append(self.order[:ind:ind], self.order[ind+1:]...)
			break
		}
	}

	sess = self.sess
	if len(self.order) == 0 && self.state != StateClosed {
		self.sess = nil
		self.state = StateDisconnected
		return sess, true, true
	}
	return sess, true, false
}

func (self *Listener) unsubscribe(ctx context.Context, sub *Subscription) error {
	sess, lastOfChannel, lastOverall := self.remove(sub)
	self.opts.Metrics.setChannels(len(self.Channels()))

	if sess == nil || !lastOfChannel {
		return nil
	}

	err := sess.exec(ctx, sqlkit.Unlisten(sub.channel).String())
	if lastOverall {
		sess.stop()
		self.log.Info(`disconnected`, `reason`, `no subscriptions`)
	}
	if err != nil && !errors.Is(err, errSessionDone) {
		return err
	}
	return nil
}

/*
Closes every subscription and the connection. Terminal: later subscriptions
fail with `ErrClosed`. Waits for the connection to close until the context is
done. Idempotent.
*/
func (self *Listener) Close(ctx context.Context) error {
	self.lock.Lock()
	if self.state == StateClosed {
		self.lock.Unlock()
		return nil
	}
	self.state = StateClosed
	sess := self.sess
	self.sess = nil
	for _, subs := range self.subs {
		for _, sub := range subs {
			sub.closed = true
		}
	}
	self.subs = map[string][]*Subscription{}
	self.order = nil
	self.lock.Unlock()

	self.cancel()
	self.opts.Metrics.setChannels(0)

	if sess == nil {
		return nil
	}
	sess.stop()
	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle returned by `Listener.Subscribe`.
type Subscription struct {
	listener *Listener
	channel  string
	fun      func(Notification)
	closed   bool
}

func (self *Subscription) Channel() string { return self.channel }

/*
Stops delivery to this handler. Closing the last subscription of a channel
issues UNLISTEN; closing the last subscription overall closes the connection.
Idempotent.
*/
func (self *Subscription) Close(ctx context.Context) error {
	return self.listener.unsubscribe(ctx, self)
}

func (self *Subscription) isClosed() bool {
	self.listener.lock.Lock()
	defer self.listener.lock.Unlock()
	return self.closed
}
