package sensor

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/oshokin/fanctl/internal/tools"
)

var errKilled = errors.New("signal: killed")

// scriptedRunner returns queued outputs for Run and queued streams for Stream.
type scriptedRunner struct {
	mu sync.Mutex

	runs    []runResult
	runArgs [][]string
	streams     []*fakeStream
	started     int
	streamCalls int
}

type runResult struct {
	stdout string
	err    error
	// block makes Run wait for ctx to end.
	block bool
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	r.mu.Lock()

	r.runArgs = append(r.runArgs, append([]string{name}, args...))

	var result runResult
	if len(r.runs) > 0 {
		result = r.runs[0]
		if len(r.runs) > 1 {
			r.runs = r.runs[1:]
		}
	}

	r.mu.Unlock()

	if result.block {
		<-ctx.Done()

		return nil, nil, -1, ctx.Err()
	}

	if result.err != nil {
		return nil, []byte(result.err.Error()), 1, result.err
	}

	return []byte(result.stdout), nil, 0, nil
}

func (r *scriptedRunner) Stream(context.Context, string, ...string) (tools.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.streamCalls++

	if r.started >= len(r.streams) {
		return nil, errors.New("no more streams")
	}

	s := r.streams[r.started]
	r.started++

	return s, nil
}

func (r *scriptedRunner) startedStreams() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.started
}

// fakeStream is a process whose stdout the test writes to.
type fakeStream struct {
	reader *io.PipeReader
	writer *io.PipeWriter

	once sync.Once
	done chan struct{}
}

func newFakeStream() *fakeStream {
	reader, writer := io.Pipe()

	return &fakeStream{
		reader: reader,
		writer: writer,
		done:   make(chan struct{}),
	}
}

// emit writes one line; it blocks until the probe reads it.
func (s *fakeStream) emit(line string) {
	_, _ = io.WriteString(s.writer, line+"\n")
}

// exit ends the process normally.
func (s *fakeStream) exit() {
	s.once.Do(func() {
		_ = s.writer.Close()
		close(s.done)
	})
}

func (s *fakeStream) Stdout() io.Reader { return s.reader }

func (s *fakeStream) Wait() error {
	<-s.done

	return nil
}

func (s *fakeStream) Kill() error {
	s.once.Do(func() {
		_ = s.writer.CloseWithError(errKilled)
		close(s.done)
	})

	return nil
}

// killed reports whether the stream has ended.
func (s *fakeStream) killed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
