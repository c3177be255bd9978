package broker

import (
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq/internal/packets"
)

// Status is a user's connection state.
type Status int

const (
	// Active means the user's connection is live.
	Active Status = iota
	// TemporarilyDisconnected means the stream closed without a
	// DISCONNECT; subscriptions are preserved for reconnect.
	TemporarilyDisconnected
)

// Will is the last-will PUBLISH stored at CONNECT time and published on
// disconnect.
type Will struct {
	Topic   string
	Payload []byte
	QoS     uint8
}

// User is the broker's per-client record.
type User struct {
	Conn    net.Conn
	WriteMu *sync.Mutex
	Status  Status
	Will    *Will
	Subs    map[string]struct{}
}

type subscriber struct {
	clientID string
	conn     net.Conn
	writeMu  *sync.Mutex
}

// Registry holds the broker's two shared maps — users and
// subsByTopic — and enforces the invariant that every (topic,
// clientID) pair appears in both, removal purges both, and the two
// mutexes are always taken in the order users then subsByTopic to
// prevent deadlock.
type Registry struct {
	usersMu sync.Mutex
	users   map[string]*User

	topicsMu    sync.Mutex
	subsByTopic map[string][]subscriber

	logger *zap.Logger
}

// NewRegistry constructs an empty Registry. A nil logger is replaced
// with zap.NewNop().
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		users:       make(map[string]*User),
		subsByTopic: make(map[string][]subscriber),
		logger:      logger,
	}
}

// Connect registers clientID as Active on conn, taking over an
// existing TemporarilyDisconnected session if one exists, or creating
// a fresh User otherwise. It returns the user record and whether an
// existing session was resumed.
func (r *Registry) Connect(clientID string, conn net.Conn, writeMu *sync.Mutex, will *Will) (*User, bool) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	if u, ok := r.users[clientID]; ok && u.Status == TemporarilyDisconnected {
		u.Conn = conn
		u.WriteMu = writeMu
		u.Status = Active
		u.Will = will
		r.refreshSubscriberConnsLocked(clientID, u, conn, writeMu)
		return u, true
	}

	u := &User{
		Conn:    conn,
		WriteMu: writeMu,
		Status:  Active,
		Will:    will,
		Subs:    make(map[string]struct{}),
	}
	r.users[clientID] = u
	return u, false
}

// refreshSubscriberConnsLocked must be called with usersMu held. It
// repoints every subsByTopic entry for clientID at the new connection
// after session takeover.
func (r *Registry) refreshSubscriberConnsLocked(clientID string, u *User, conn net.Conn, writeMu *sync.Mutex) {
	r.topicsMu.Lock()
	defer r.topicsMu.Unlock()
	for topic := range u.Subs {
		list := r.subsByTopic[topic]
		for i := range list {
			if list[i].clientID == clientID {
				list[i].conn = conn
				list[i].writeMu = writeMu
			}
		}
	}
}

// Subscribe records clientID's interest in each topic and returns one
// granted return code per topic, in order. This broker always grants
// SubackQoS1 — granted QoS is capped at 1 regardless of what was
// requested.
func (r *Registry) Subscribe(clientID string, topics []string, requestedQoS []uint8) []uint8 {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	u, ok := r.users[clientID]
	if !ok {
		r.logger.Error("subscribe for unknown client", zap.String("client_id", clientID))
		codes := make([]uint8, len(topics))
		for i := range codes {
			codes[i] = packets.SubackFailure
		}
		return codes
	}

	r.topicsMu.Lock()
	defer r.topicsMu.Unlock()

	codes := make([]uint8, len(topics))
	for i, topic := range topics {
		u.Subs[topic] = struct{}{}

		already := false
		for _, sub := range r.subsByTopic[topic] {
			if sub.clientID == clientID {
				already = true
				break
			}
		}
		if !already {
			r.subsByTopic[topic] = append(r.subsByTopic[topic], subscriber{
				clientID: clientID,
				conn:     u.Conn,
				writeMu:  u.WriteMu,
			})
		}
		codes[i] = packets.SubackQoS1
	}

	return codes
}

// Publish fans a PUBLISH out to every subscriber of topic except
// senderID, returning the number of subscribers the broker attempted
// to deliver to. The registry lock is held only long enough to clone
// the subscriber list; writes happen afterward under each
// subscriber's own write mutex.
func (r *Registry) Publish(senderID, topic string, pkt *packets.PublishPacket) int {
	r.topicsMu.Lock()
	list := append([]subscriber(nil), r.subsByTopic[topic]...)
	r.topicsMu.Unlock()

	delivered := 0
	for _, sub := range list {
		if sub.clientID == senderID {
			continue
		}
		sub.writeMu.Lock()
		_, err := pkt.WriteTo(sub.conn)
		sub.writeMu.Unlock()
		if err != nil {
			r.logger.Warn("fan-out write failed",
				zap.String("client_id", sub.clientID),
				zap.String("topic", topic),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// Disconnect removes or parks clientID depending on whether the
// disconnect was voluntary, returning the stored will (if any) so the
// caller can publish it. A voluntary disconnect purges the user from
// both maps; an involuntary one marks it TemporarilyDisconnected and
// keeps its subscriptions in place for reconnect.
func (r *Registry) Disconnect(clientID string, voluntary bool) *Will {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	u, ok := r.users[clientID]
	if !ok {
		return nil
	}

	if !voluntary {
		u.Status = TemporarilyDisconnected
		return u.Will
	}

	delete(r.users, clientID)

	r.topicsMu.Lock()
	defer r.topicsMu.Unlock()
	for topic := range u.Subs {
		list := r.subsByTopic[topic]
		filtered := list[:0]
		for _, sub := range list {
			if sub.clientID != clientID {
				filtered = append(filtered, sub)
			}
		}
		if len(filtered) == 0 {
			delete(r.subsByTopic, topic)
		} else {
			r.subsByTopic[topic] = filtered
		}
	}

	return u.Will
}

// SubscriberCount returns how many clients are currently subscribed to
// topic, including clients parked as TemporarilyDisconnected.
func (r *Registry) SubscriberCount(topic string) int {
	r.topicsMu.Lock()
	defer r.topicsMu.Unlock()
	return len(r.subsByTopic[topic])
}

// HasSubscription reports whether clientID is recorded as subscribed
// to topic in both maps, the consistency invariant the registry
// maintains on every mutation.
func (r *Registry) HasSubscription(clientID, topic string) (inUsers, inTopics bool) {
	r.usersMu.Lock()
	if u, ok := r.users[clientID]; ok {
		_, inUsers = u.Subs[topic]
	}
	r.usersMu.Unlock()

	r.topicsMu.Lock()
	for _, sub := range r.subsByTopic[topic] {
		if sub.clientID == clientID {
			inTopics = true
			break
		}
	}
	r.topicsMu.Unlock()

	return inUsers, inTopics
}
