package session

import (
	"sync"

	"github.com/grovetools/repoview/pkg/viewmodel"
)

// subscriberBuffer is the capacity of each subscription channel.
const subscriberBuffer = 64

// Update is published on every state change and every new view model.
type Update struct {
	State State
	// Repo is the latest view model, nil until the first snapshot.
	Repo *viewmodel.Repo
	// Err is the failure that moved the session to Errored.
	Err error
}

// broadcaster fans updates out to subscribers. Sends never block: a
// subscriber that falls behind misses updates and should read Session.Repo.
type broadcaster struct {
	mu          sync.Mutex
	subscribers map[<-chan Update]chan Update
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subscribers: make(map[<-chan Update]chan Update)}
}

func (b *broadcaster) subscribe() <-chan Update {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Update, subscriberBuffer)
	b.subscribers[ch] = ch
	return ch
}

func (b *broadcaster) unsubscribe(ch <-chan Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(c)
	}
}

func (b *broadcaster) publish(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}
