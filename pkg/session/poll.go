package session

import (
	"context"
	"time"

	"github.com/grovetools/repoview/errors"
)

// minPollInterval is the shortest empty poll treated as a long-poll timeout.
const minPollInterval = 100 * time.Millisecond

// startPolling runs the GetRepoChanges long-poll loop for repoID in place of
// an event stream. It returns false when gen is no longer current.
func (s *Session) startPolling(gen uint64, repoID string) bool {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		cancel()
		return false
	}
	s.stop = cancel
	s.done = done
	s.mu.Unlock()

	go s.poll(ctx, gen, repoID, done)
	return true
}

func (s *Session) poll(ctx context.Context, gen uint64, repoID string, done chan struct{}) {
	defer close(done)
	log := s.logger.WithField("repo_id", repoID)

	for ctx.Err() == nil {
		started := time.Now()
		changes, err := s.client.GetRepoChanges(ctx, repoID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, errors.ErrCodeTransportClosed) || errors.Is(err, errors.ErrCodeTransportNotOpen) {
				s.fail(gen, err)
				return
			}
			log.WithError(err).Warn("Polling repository changes failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pollDelay()):
			}
			continue
		}

		if !s.apply(gen, changes...) {
			return
		}
		// A backend that does not long-poll answers at once with nothing.
		if len(changes) == 0 && time.Since(started) < minPollInterval {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pollDelay()):
			}
		}
	}
}
