package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_StartsPreAuth(t *testing.T) {
	sess := newSession(fdA)
	assert.False(t, sess.authenticated())
}

func TestSession_EnqueueAccumulatesOutput(t *testing.T) {
	sess := newSession(fdA)
	sess.enqueue("one\n")
	sess.enqueue("two\n")
	assert.Equal(t, "one\ntwo\n", string(sess.outbuf))
	assert.True(t, sess.hasPendingWrite())
}

func TestSession_IdleSinceReflectsLastActivity(t *testing.T) {
	sess := newSession(fdA)
	sess.lastActive = time.Now().Add(-90 * time.Second)
	assert.True(t, sess.idleSince(time.Now()) > 60*time.Second)
	sess.touch()
	assert.True(t, sess.idleSince(time.Now()) < time.Second)
}
