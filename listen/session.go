package listen

import (
	"context"
	"errors"
	"sync"
)

var errSessionDone = errors.New(`[sqlkit] listener connection is done`)

type command struct {
	sql   string
	reply chan error
}

/*
One live connection. The loop goroutine owns the connection: it alternates
between receiving notifications and running queued commands, interrupting a
receive to run a command.
*/
type session struct {
	conn   Conn
	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan command
	done   chan struct{}

	lock   sync.Mutex
	halted bool
}

func newSession(ctx context.Context, conn Conn) *session {
	ctx, cancel := context.WithCancel(ctx)
	return &session{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		cmds:   make(chan command),
		done:   make(chan struct{}),
	}
}

// Intentional shutdown. Doesn't trigger a reconnect.
func (self *session) stop() {
	self.lock.Lock()
	self.halted = true
	self.lock.Unlock()
	self.cancel()
}

func (self *session) stopped() bool {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.halted
}

// Runs the statement on the loop goroutine.
func (self *session) exec(ctx context.Context, sql string) error {
	cmd := command{sql: sql, reply: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-self.done:
		return errSessionDone
	case self.cmds <- cmd:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-cmd.reply:
		return err
	}
}

type received struct {
	msg Message
	err error
}

/*
Loop of the session. Returns nil after `stop`, or the connection error that
ended it. Closes the connection before returning.
*/
func (self *session) run(push func(Message)) (err error) {
	defer close(self.done)
	defer func() { _ = self.conn.Close(context.Background()) }()

	for {
		waitCtx, cancel := context.WithCancel(self.ctx)
		results := make(chan received, 1)
		go func() {
			msg, err := self.conn.Receive(waitCtx)
			results <- received{msg, err}
		}()

		var cmd *command
		var res received
		select {
		case res = <-results:
		case val := <-self.cmds:
			cmd = &val
			cancel()
			res = <-results
		}
		interrupted := waitCtx.Err() != nil
		cancel()

		if res.err == nil {
			push(res.msg)
		} else if self.ctx.Err() != nil {
			if cmd != nil {
				cmd.reply <- errSessionDone
			}
			if self.stopped() {
				return nil
			}
			return self.ctx.Err()
		} else if !interrupted {
			if cmd != nil {
				cmd.reply <- res.err
			}
			return res.err
		}

		if cmd != nil {
			cmd.reply <- self.conn.Exec(self.ctx, cmd.sql)
		}
	}
}

/*
Unbounded FIFO between the session loop and the subscriber handlers, so slow
handlers never block the connection and handlers may close subscriptions.
*/
type dispatcher struct {
	lock  sync.Mutex
	queue []Message
	wake  chan struct{}
}

func (self *dispatcher) init() { self.wake = make(chan struct{}, 1) }

func (self *dispatcher) push(val Message) {
	self.lock.Lock()
	self.queue = append(self.queue, val)
	self.lock.Unlock()

	select {
	case self.wake <- struct{}{}:
	default:
	}
}

func (self *dispatcher) pop() (out []Message) {
	self.lock.Lock()
	defer self.lock.Unlock()
	out, self.queue = self.queue, nil
	return
}

func (self *dispatcher) run(ctx context.Context, deliver func(Message)) {
	for {
		for _, val := range self.pop() {
			deliver(val)
		}
		select {
		case <-ctx.Done():
			return
		case <-self.wake:
		}
	}
}
