package fakebackend

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/repoview/pkg/api"
)

// Fixture is a repository the backend can open.
type Fixture struct {
	Path               string
	CurrentBranchName  string
	UncommittedChanges int
	Commits            []api.Commit
}

// openRepo is the state of one opened repository.
type openRepo struct {
	id      string
	fixture Fixture
	search  string

	subscribers map[chan api.RepoChange]struct{}
	// queue holds changes for GetRepoChanges pollers.
	queue  []api.RepoChange
	notify chan struct{}
}

// store is the in-memory state of the backend. It is thread-safe and fans
// repository changes out to event stream subscribers and pollers.
type store struct {
	mu       sync.Mutex
	fixtures map[string]Fixture
	repos    map[string]*openRepo
	recent   []string
	subDirs  map[string][]string
}

func newStore() *store {
	return &store{
		fixtures: make(map[string]Fixture),
		repos:    make(map[string]*openRepo),
		subDirs:  make(map[string][]string),
	}
}

func (s *store) addFixture(f Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures[f.Path] = f
}

func (s *store) setSubDirs(parent string, dirs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subDirs[parent] = append([]string(nil), dirs...)
}

func (s *store) getSubDirs(parent string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirs, ok := s.subDirs[parent]
	if !ok {
		return nil, fmt.Errorf("no such directory: %s", parent)
	}
	return append([]string(nil), dirs...), nil
}

func (s *store) recentDirs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.recent...)
}

// open registers a new repository session for path and queues the
// bootstrap notification.
func (s *store) open(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fixtures[path]
	if !ok {
		return "", fmt.Errorf("not a git repository: %s", path)
	}
	f.Commits = append([]api.Commit(nil), f.Commits...)
	r := &openRepo{
		id:          uuid.NewString(),
		fixture:     f,
		subscribers: make(map[chan api.RepoChange]struct{}),
		notify:      make(chan struct{}, 1),
	}
	s.repos[r.id] = r
	s.recent = append([]string{path}, without(s.recent, path)...)
	s.publishLocked(r, api.RepoChange{IsStarting: true})
	return r.id, nil
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// close removes a repository and ends its event streams.
func (s *store) close(repoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[repoID]
	if !ok {
		return unknownRepo(repoID)
	}
	delete(s.repos, repoID)
	for ch := range r.subscribers {
		close(ch)
	}
	r.subscribers = nil
	return nil
}

func unknownRepo(repoID string) error {
	return fmt.Errorf("unknown repo id: %s", repoID)
}

// subscribe returns a channel of changes for repoID.
func (s *store) subscribe(repoID string) (chan api.RepoChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[repoID]
	if !ok {
		return nil, false
	}
	ch := make(chan api.RepoChange, 100)
	r.subscribers[ch] = struct{}{}
	return ch, true
}

func (s *store) unsubscribe(repoID string, ch chan api.RepoChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[repoID]
	if !ok {
		return
	}
	if _, ok := r.subscribers[ch]; ok {
		delete(r.subscribers, ch)
		close(ch)
	}
}

// publish sends a change to every subscriber of repoID and queues it for
// pollers.
func (s *store) publish(repoID string, change api.RepoChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[repoID]
	if !ok {
		return unknownRepo(repoID)
	}
	s.publishLocked(r, change)
	return nil
}

func (s *store) publishLocked(r *openRepo, change api.RepoChange) {
	for ch := range r.subscribers {
		select {
		case ch <- change:
		default:
			// Non-blocking send to prevent slow clients from stalling the backend
		}
	}
	r.queue = append(r.queue, change)
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// refresh publishes the current snapshot of repoID.
func (s *store) refresh(repoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[repoID]
	if !ok {
		return unknownRepo(repoID)
	}
	s.publishLocked(r, r.snapshot())
	return nil
}

func (r *openRepo) snapshot() api.RepoChange {
	commits := make([]api.Commit, len(r.fixture.Commits))
	copy(commits, r.fixture.Commits)
	return api.RepoChange{
		SearchText: r.search,
		ViewRepo: &api.ViewRepo{
			Commits:            commits,
			CurrentBranchName:  r.fixture.CurrentBranchName,
			RepoPath:           r.fixture.Path,
			UncommittedChanges: r.fixture.UncommittedChanges,
		},
	}
}

// update applies fn to the repository and publishes the resulting snapshot.
func (s *store) update(repoID string, fn func(r *openRepo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[repoID]
	if !ok {
		return unknownRepo(repoID)
	}
	if err := fn(r); err != nil {
		return err
	}
	s.publishLocked(r, r.snapshot())
	return nil
}

// drain waits up to timeout for queued changes of repoID and returns them.
// An empty result means nothing happened in time.
func (s *store) drain(repoID string, timeout time.Duration, done <-chan struct{}) ([]api.RepoChange, error) {
	s.mu.Lock()
	r, ok := s.repos[repoID]
	if !ok {
		s.mu.Unlock()
		return nil, unknownRepo(repoID)
	}
	if len(r.queue) == 0 {
		notify := r.notify
		s.mu.Unlock()
		select {
		case <-notify:
		case <-time.After(timeout):
		case <-done:
		}
		s.mu.Lock()
	}
	changes := r.queue
	r.queue = nil
	s.mu.Unlock()
	if changes == nil {
		changes = []api.RepoChange{}
	}
	return changes, nil
}

// branches lists the distinct branches of repoID in column order.
func (s *store) branches(repoID string) ([]api.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[repoID]
	if !ok {
		return nil, unknownRepo(repoID)
	}
	seen := make(map[string]bool)
	branches := []api.Branch{}
	for _, c := range r.fixture.Commits {
		if seen[c.Branch.Name] {
			continue
		}
		seen[c.Branch.Name] = true
		b := c.Branch
		b.IsCurrent = b.Name == r.fixture.CurrentBranchName
		branches = append(branches, b)
	}
	return branches, nil
}
