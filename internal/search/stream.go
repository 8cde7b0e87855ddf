package search

import (
	"context"

	"strata/internal/errors"
)

// Stream is an in-flight incremental search. Matches arrive on Matches
// until the search completes, errors, or is cancelled; the channel is
// closed in every case. Err is valid only after Matches closes.
type Stream struct {
	matches <-chan Match
	cancel  context.CancelFunc
	err     error
	done    chan struct{}
}

// Matches returns the match channel.
func (s *Stream) Matches() <-chan Match {
	return s.matches
}

// Cancel stops the search and kills the underlying process so the pool
// worker is released promptly. Safe to call more than once and after
// completion.
func (s *Stream) Cancel() {
	s.cancel()
}

// Err returns the terminal error, if any, once Matches has closed.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// SearchStream runs an incremental search: matches are delivered as
// ripgrep reports them instead of buffered until completion. The stream
// holds a pool worker until it finishes or is cancelled; a fired
// timeout cancels the process rather than ignoring further output.
// Streaming has no fallback scan — callers wanting the bounded
// last-resort path use Search.
func (e *Engine) SearchStream(ctx context.Context, q Query) (*Stream, error) {
	if e.closed.Load() {
		return nil, errors.New(errors.SearchFailed, "search engine is closed", nil)
	}
	if e.rgPath == "" {
		return nil, errors.New(errors.SearchFailed, "rg unavailable, streaming not supported", nil)
	}
	e.normalize(&q)

	if err := e.acquire(ctx); err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	out := make(chan Match, 64)
	s := &Stream{
		matches: out,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer e.release()
		defer cancel()
		defer close(s.done)
		defer close(out)

		err := runRipgrep(streamCtx, e.rgPath, q, e.cfg.Exclude, func(m Match) bool {
			select {
			case out <- m:
				return true
			case <-streamCtx.Done():
				return false
			}
		})
		if err != nil && streamCtx.Err() == nil {
			s.err = errors.New(errors.SearchFailed, "streaming search failed", err)
		}
	}()

	return s, nil
}
