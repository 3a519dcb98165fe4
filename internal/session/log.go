package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Line is one entry of a session's running log.
type Line struct {
	Time  time.Time
	Level zerolog.Level
	Stage Stage
	Text  string
}

func (l Line) String() string {
	return fmt.Sprintf("%s [%s] %s", l.Time.Format(time.TimeOnly), l.Stage, l.Text)
}

// Log is an append-only list of lines shared between the session worker and
// any number of readers. Appending never waits on a reader.
type Log struct {
	mu     sync.Mutex
	cond   *sync.Cond
	lines  []Line
	closed bool
}

// NewLog creates an empty log
func NewLog() *Log {
	l := &Log{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Append adds a line and wakes followers. Lines appended after Close are dropped.
func (l *Log) Append(line Line) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.lines = append(l.lines, line)
	l.cond.Broadcast()
}

// Lines returns a copy of everything logged so far
func (l *Log) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Line(nil), l.lines...)
}

// Len returns the number of lines logged so far
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

// Close marks the log complete. Followers drain what is left and finish.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.cond.Broadcast()
}

// Follow streams every line, past and future, until the log is closed or ctx
// is done. The channel is closed when streaming stops.
func (l *Log) Follow(ctx context.Context) <-chan Line {
	ch := make(chan Line)

	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})

	go func() {
		defer close(ch)
		defer stop()

		next := 0
		for {
			l.mu.Lock()
			for next >= len(l.lines) && !l.closed && ctx.Err() == nil {
				l.cond.Wait()
			}
			if ctx.Err() != nil || next >= len(l.lines) {
				l.mu.Unlock()
				return
			}
			// Existing elements are never modified, so the batch stays valid
			// after the lock is released.
			batch := l.lines[next:]
			next = len(l.lines)
			l.mu.Unlock()

			for _, line := range batch {
				select {
				case ch <- line:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}
