// bus.go
package bus

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path. Any comparable value works;
// services use strings for names and ints for numeric IDs.
type Token = any

// Topic is a sequence of tokens. In subscription patterns "+" matches exactly
// one token and "#" matches any remainder (including none).
type Topic []Token

const (
	WildcardOne = "+"
	WildcardAll = "#"
)

// T builds a Topic. Tokens must be usable as map keys; T panics otherwise so
// the mistake shows up at construction, not deep inside the trie.
func T(parts ...Token) Topic {
	t := make(Topic, len(parts))
	for i, p := range parts {
		if p != nil && !reflect.TypeOf(p).Comparable() {
			panic("bus: topic token must be comparable")
		}
		t[i] = p
	}
	return t
}

func (t Topic) Len() int       { return len(t) }
func (t Topic) At(i int) Token { return t[i] }

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	bus   *Bus
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu   sync.RWMutex
	root *node
	qLen int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// NewMessage builds a message for publication on this bus.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// addSubscription inserts a subscription into the trie and delivers every
// retained message its pattern matches.
func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		if n.children == nil {
			n.children = make(map[Token]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	var retained []*Message
	collectRetained(b.root, topic, 0, &retained)
	for _, m := range retained {
		deliver(sub, m)
	}
}

// collectRetained walks the trie matching a subscription pattern against
// stored retained messages.
func collectRetained(n *node, pat Topic, i int, out *[]*Message) {
	if n == nil {
		return
	}
	if i == len(pat) {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch pat[i] {
	case WildcardOne:
		for _, c := range n.children {
			collectRetained(c, pat, i+1, out)
		}
	case WildcardAll:
		collectSubtree(n, out)
	default:
		collectRetained(n.children[pat[i]], pat, i+1, out)
	}
}

// collectSubtree gathers retained messages at n and below; "#" matches zero
// or more tokens.
func collectSubtree(n *node, out *[]*Message) {
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for _, c := range n.children {
		collectSubtree(c, out)
	}
}

// Publish delivers a message to all matching subscribers and, when retained,
// stores it at the exact topic node.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var subs []*Subscription
	match(b.root, msg.Topic, 0, &subs)
	for _, sub := range subs {
		deliver(sub, msg)
	}

	if !msg.Retained {
		return
	}
	n := b.root
	for _, tok := range msg.Topic {
		if n.children == nil {
			n.children = make(map[Token]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	if msg.Payload == nil {
		n.retained = nil // nil payload clears the retained slot
	} else {
		n.retained = msg
	}
}

// match collects subscriptions whose pattern matches a concrete topic.
func match(n *node, topic Topic, i int, out *[]*Subscription) {
	if n == nil {
		return
	}
	if h := n.children[WildcardAll]; h != nil {
		*out = append(*out, h.subs...)
	}
	if i == len(topic) {
		*out = append(*out, n.subs...)
		return
	}
	match(n.children[topic[i]], topic, i+1, out)
	match(n.children[WildcardOne], topic, i+1, out)
}

// deliver hands msg to one subscriber. Publishing never blocks on a slow
// consumer: a full queue drops its oldest message first.
func deliver(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
	default:
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// unsubscribe removes a subscription from the trie.
func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[t]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	// Remove subscription.
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string // used to build private reply topics
	seq  atomic.Uint32
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

// NewMessage builds a message for publication via this connection.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		bus:   c.bus,
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Request–Reply
// -----------------------------------------------------------------------------

// Request publishes msg with a private ReplyTo topic and returns the
// subscription on which replies arrive. The caller owns the subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	msg.ReplyTo = Topic{"reply", c.id, int(c.seq.Add(1))}
	sub := c.Subscribe(msg.ReplyTo)
	c.bus.Publish(msg)
	return sub
}

// RequestWait publishes msg and blocks for a single reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)

	select {
	case reply, ok := <-sub.ch:
		if !ok {
			return nil, errors.New("bus: reply channel closed")
		}
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply answers a request on its ReplyTo topic. A request without ReplyTo is
// silently ignored.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.bus.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}
