package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_NotifyUserRequiresLookupHit(t *testing.T) {
	sess := newSession(fdA)
	n := NewNotifier(func(clientID string) (*Session, bool) {
		if clientID == "alice" {
			return sess, true
		}
		return nil, false
	})

	n.NotifyUser("bob", "ignored\n")
	assert.Empty(t, sess.outbuf)

	n.NotifyUser("alice", "hello\n")
	assert.Equal(t, "hello\n", string(sess.outbuf))
}

func TestNotifier_SubscribeAndUnsubscribe(t *testing.T) {
	n := NewNotifier(func(string) (*Session, bool) { return nil, false })
	n.Subscribe("chat", "alice")
	n.Subscribe("chat", "bob")
	n.Unsubscribe("chat", "alice")

	assert.Equal(t, []string{"bob"}, n.groups["chat"])
}

func TestNotifier_SubscriptionsFor(t *testing.T) {
	n := NewNotifier(func(string) (*Session, bool) { return nil, false })
	n.Subscribe("chat", "alice")
	n.Subscribe("L1", "alice")
	n.Subscribe("chat", "bob")

	assert.Equal(t, []string{"L1", "chat"}, n.SubscriptionsFor("alice"))
	assert.Equal(t, []string{"chat"}, n.SubscriptionsFor("bob"))
	assert.Empty(t, n.SubscriptionsFor("carol"))
}

func TestNotifier_NotifyGroupDeliversToEveryMember(t *testing.T) {
	a, b := newSession(fdA), newSession(fdB)
	n := NewNotifier(func(clientID string) (*Session, bool) {
		switch clientID {
		case "alice":
			return a, true
		case "bob":
			return b, true
		default:
			return nil, false
		}
	})
	n.Subscribe("chat", "alice")
	n.Subscribe("chat", "bob")

	n.NotifyGroup("chat", "hi\n")
	assert.Equal(t, "hi\n", string(a.outbuf))
	assert.Equal(t, "hi\n", string(b.outbuf))
}
