package store

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"kaiwa/models"
)

const subscriptionBuffer = 64

// Feed fans newly inserted messages out to per-room subscribers. Delivery is
// asynchronous relative to the Append return; per-subscriber order matches
// insertion order.
type Feed struct {
	mu   sync.Mutex
	subs map[string]map[string]*Subscription // room -> sub id -> sub
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[string]*Subscription)}
}

// Subscription is a handle on the insert feed for one room. Close releases it;
// after Close the channel is closed and no further messages arrive.
type Subscription struct {
	id     string
	roomID string
	ch     chan models.Message
	feed   *Feed
	once   sync.Once
}

// C is the channel of inserted messages, in insertion order. It is closed
// when the subscription is Closed or evicted for falling behind.
func (s *Subscription) C() <-chan models.Message { return s.ch }

// Close detaches the subscription from the feed.
func (s *Subscription) Close() {
	s.feed.remove(s)
}

// Subscribe registers a new subscriber for roomID.
func (f *Feed) Subscribe(roomID string) *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		roomID: roomID,
		ch:     make(chan models.Message, subscriptionBuffer),
		feed:   f,
	}
	f.mu.Lock()
	room := f.subs[roomID]
	if room == nil {
		room = make(map[string]*Subscription)
		f.subs[roomID] = room
	}
	room[sub.id] = sub
	f.mu.Unlock()
	return sub
}

// publish delivers m to every subscriber of its room. A subscriber whose
// buffer is full is evicted rather than allowed to skip rows: its channel is
// closed and the consumer is expected to re-seed and resubscribe.
func (f *Feed) publish(m models.Message) {
	var evicted []*Subscription
	f.mu.Lock()
	for _, sub := range f.subs[m.RoomID] {
		select {
		case sub.ch <- m:
		default:
			evicted = append(evicted, sub)
		}
	}
	for _, sub := range evicted {
		f.removeLocked(sub)
		log.Printf("[store] feed subscriber %s evicted (slow consumer)", sub.id)
	}
	f.mu.Unlock()
}

func (f *Feed) remove(sub *Subscription) {
	f.mu.Lock()
	f.removeLocked(sub)
	f.mu.Unlock()
}

func (f *Feed) removeLocked(sub *Subscription) {
	room := f.subs[sub.roomID]
	if room == nil {
		return
	}
	if _, ok := room[sub.id]; !ok {
		return
	}
	delete(room, sub.id)
	if len(room) == 0 {
		delete(f.subs, sub.roomID)
	}
	sub.once.Do(func() { close(sub.ch) })
}
