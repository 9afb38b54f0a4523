package eventloop

import (
	"context"
	"log"
	"sync"

	"snapclip/src/mousehook"
	"snapclip/src/singleinstance"
)

// Handler receives events on the loop goroutine, one at a time.
type Handler interface {
	HandleHotkey(id int)
	HandlePointer(ev mousehook.Event)
	HandleComplete()
	// Status is a one-line summary returned to STATUS requests.
	Status() string
	// Shutdown runs once, on the loop goroutine, before Run returns.
	Shutdown()
}

type eventKind int

const (
	evHotkey eventKind = iota
	evPointer
	evComplete
	evRequest
	evExit
)

type event struct {
	kind    eventKind
	id      int
	pointer mousehook.Event
	conn    singleinstance.Conn
}

// Loop is the single control goroutine. Every post appends to an unbounded
// FIFO mailbox and never blocks, so OS callbacks can post from any thread.
type Loop struct {
	mu    sync.Mutex
	queue []event
	wake  chan struct{}
	srv   singleinstance.Server
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Serve routes control requests from srv into the mailbox while Run is active.
// It must be called before Run.
func (l *Loop) Serve(srv singleinstance.Server) { l.srv = srv }

// PostHotkey enqueues a hotkey press.
func (l *Loop) PostHotkey(id int) { l.post(event{kind: evHotkey, id: id}) }

// PostPointer enqueues a pointer event.
func (l *Loop) PostPointer(ev mousehook.Event) { l.post(event{kind: evPointer, pointer: ev}) }

// PostComplete enqueues the selection-complete signal.
func (l *Loop) PostComplete() { l.post(event{kind: evComplete}) }

// RequestExit enqueues shutdown. Events posted earlier are still handled first.
func (l *Loop) RequestExit() { l.post(event{kind: evExit}) }

func (l *Loop) post(ev event) {
	l.mu.Lock()
	l.queue = append(l.queue, ev)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) pop() (event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return event{}, false
	}
	ev := l.queue[0]
	l.queue[0] = event{}
	l.queue = l.queue[1:]
	if len(l.queue) == 0 {
		l.queue = nil
	}
	return ev, true
}

// Run dispatches events to h in post order until RequestExit or ctx is
// cancelled. h.Shutdown is always called before Run returns.
func (l *Loop) Run(ctx context.Context, h Handler) error {
	defer l.drain()
	defer h.Shutdown()

	if l.srv != nil {
		acceptCtx, cancel := context.WithCancel(ctx)
		accepted := make(chan struct{})
		go func() {
			defer close(accepted)
			l.accept(acceptCtx)
		}()
		// A connection already taken from the server is posted before drain runs.
		defer func() {
			cancel()
			<-accepted
		}()
	}

	for {
		for {
			ev, ok := l.pop()
			if !ok {
				break
			}
			if !l.dispatch(h, ev) {
				log.Printf("eventloop: exit requested")
				return nil
			}
		}
		select {
		case <-ctx.Done():
			log.Printf("eventloop: context done: %v", ctx.Err())
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) dispatch(h Handler, ev event) bool {
	switch ev.kind {
	case evHotkey:
		h.HandleHotkey(ev.id)
	case evPointer:
		h.HandlePointer(ev.pointer)
	case evComplete:
		h.HandleComplete()
	case evRequest:
		return l.handleRequest(h, ev.conn)
	case evExit:
		return false
	}
	return true
}

func (l *Loop) handleRequest(h Handler, conn singleinstance.Conn) bool {
	defer conn.Close()
	switch cmd := conn.Request().Command; cmd {
	case singleinstance.CommandExit:
		log.Printf("eventloop: remote exit request")
		_ = conn.RespondSuccess("")
		return false
	case singleinstance.CommandStatus:
		_ = conn.RespondSuccess(h.Status())
	default:
		_ = conn.RespondError("unknown command: " + cmd)
	}
	return true
}

func (l *Loop) accept(ctx context.Context) {
	for {
		conn, err := l.srv.Next(ctx)
		if err != nil {
			return
		}
		l.post(event{kind: evRequest, conn: conn})
	}
}

// drain closes connections that arrived after exit.
func (l *Loop) drain() {
	for {
		ev, ok := l.pop()
		if !ok {
			return
		}
		if ev.kind == evRequest && ev.conn != nil {
			_ = ev.conn.RespondError("shutting down")
			_ = ev.conn.Close()
		}
	}
}
