package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
)

// StreamErrorMarker is appended to a stream that failed after output started
const StreamErrorMarker = "\n\n[Error: generation failed]"

// ChunkWriter is the client side of a streaming completion.
// WriteChunk must flush so the client sees text as it arrives.
type ChunkWriter interface {
	WriteChunk(chunk string) error
}

// StreamState is the lifecycle state of one streamed completion
type StreamState int

const (
	StreamPending StreamState = iota
	StreamStreaming
	StreamCompleted
	StreamErrored
	StreamCancelled
)

func (s StreamState) String() string {
	switch s {
	case StreamPending:
		return "pending"
	case StreamStreaming:
		return "streaming"
	case StreamCompleted:
		return "completed"
	case StreamErrored:
		return "errored"
	case StreamCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen
func (s StreamState) Terminal() bool {
	return s == StreamCompleted || s == StreamErrored || s == StreamCancelled
}

// streamSession relays one upstream stream to one client.
// It moves Pending -> Streaming -> exactly one terminal state.
type streamSession struct {
	ctx    context.Context
	out    ChunkWriter
	logger *zap.Logger

	state    StreamState
	opened   bool
	response strings.Builder
	err      error
}

func newStreamSession(ctx context.Context, out ChunkWriter, logger *zap.Logger) *streamSession {
	return &streamSession{ctx: ctx, out: out, logger: logger, state: StreamPending}
}

// run opens the upstream stream and relays it until a terminal state is reached
func (s *streamSession) run(gen Generator, prompt Prompt) StreamState {
	if s.ctx.Err() != nil {
		return s.cancel()
	}

	stream, err := gen.Stream(s.ctx, prompt)
	if err != nil {
		if s.ctx.Err() != nil {
			return s.cancel()
		}
		// nothing has been written yet, so the caller still owns the response
		s.err = err
		s.transition(StreamErrored)
		return s.state
	}
	defer stream.Close()

	s.transition(StreamStreaming)
	s.opened = true

	for {
		// no new upstream read once the client is gone
		if s.ctx.Err() != nil {
			return s.cancel()
		}

		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			s.transition(StreamCompleted)
			return s.state
		}
		if err != nil {
			if s.ctx.Err() != nil {
				return s.cancel()
			}
			return s.fail(err)
		}

		if s.ctx.Err() != nil {
			return s.cancel()
		}
		if err := s.out.WriteChunk(chunk); err != nil {
			if s.ctx.Err() != nil {
				return s.cancel()
			}
			return s.fail(err)
		}
		s.response.WriteString(chunk)
	}
}

// Response returns the text relayed so far
func (s *streamSession) Response() string {
	return s.response.String()
}

func (s *streamSession) cancel() StreamState {
	if s.transition(StreamCancelled) {
		s.logger.Debug("stream cancelled by client", zap.Int("relayed_chars", s.response.Len()))
	}
	return s.state
}

// fail appends the error marker once; the output is still open at this point
func (s *streamSession) fail(err error) StreamState {
	if !s.transition(StreamErrored) {
		return s.state
	}
	s.err = err
	s.logger.Warn("stream failed", zap.Error(err), zap.Int("relayed_chars", s.response.Len()))
	if werr := s.out.WriteChunk(StreamErrorMarker); werr != nil {
		s.logger.Debug("failed to write error marker", zap.Error(werr))
	}
	return s.state
}

func (s *streamSession) transition(next StreamState) bool {
	if s.state.Terminal() {
		return false
	}
	s.state = next
	return true
}
