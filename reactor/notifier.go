package reactor

import "sort"

// Notifier is a group-name to client-id subscription table, plus delivery
// to whichever session (if any) currently holds a given authenticated
// client id. It holds only client-id strings — a weak, lookup-based
// relation to Session, never a direct pointer — so a superseded or closed
// session simply stops resolving.
type Notifier struct {
	groups map[string][]string
	lookup func(clientID string) (*Session, bool)
}

// NewNotifier constructs a Notifier. lookup resolves a client id to its
// currently-authenticated Session, supplied by the Reactor so Notifier
// never needs to know about the authenticated-sessions table directly.
func NewNotifier(lookup func(string) (*Session, bool)) *Notifier {
	return &Notifier{
		groups: make(map[string][]string),
		lookup: lookup,
	}
}

// Subscribe appends clientID to group's list, creating the group
// implicitly. Duplicate subscriptions are silently allowed.
func (n *Notifier) Subscribe(group, clientID string) {
	n.groups[group] = append(n.groups[group], clientID)
}

// Unsubscribe removes the first occurrence of clientID from group.
func (n *Notifier) Unsubscribe(group, clientID string) {
	list := n.groups[group]
	for i, id := range list {
		if id == clientID {
			n.groups[group] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// NotifyUser appends msg to clientID's session output buffer, if that
// client currently has an authenticated session. A no-op otherwise.
func (n *Notifier) NotifyUser(clientID, msg string) {
	sess, ok := n.lookup(clientID)
	if !ok {
		return
	}
	sess.enqueue(msg)
}

// NotifyGroup delivers msg to every client id currently subscribed to
// group, in subscription order.
func (n *Notifier) NotifyGroup(group, msg string) {
	for _, clientID := range n.groups[group] {
		n.NotifyUser(clientID, msg)
	}
}

// SubscriptionsFor returns every group clientID currently appears in,
// sorted by group name. Used by the admin surface to render a session's
// subscriptions; the forward table is keyed by group because NotifyGroup
// is the hot path, so this walks every group rather than maintaining a
// second, rarely-read reverse index.
func (n *Notifier) SubscriptionsFor(clientID string) []string {
	var groups []string
	for group, ids := range n.groups {
		for _, id := range ids {
			if id == clientID {
				groups = append(groups, group)
				break
			}
		}
	}
	sort.Strings(groups)
	return groups
}
