package reactor

import "strings"

// dispatch folds the verb to upper-case, routes to a handler, and lets the
// handler enqueue zero or more reply lines onto the session's output
// buffer. Non-verb tokens keep their original case except where a handler
// explicitly says otherwise (BUY/SELL).
func (r *Reactor) dispatch(sess *Session, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	verb := strings.ToUpper(fields[0])

	switch verb {
	case "PING":
		r.cmdPing(sess)
	case "AUTH":
		r.cmdAuth(sess, fields)
	case "NEWL":
		r.cmdNewl(sess, fields)
	case "SUB":
		r.cmdSub(sess, fields)
	case "SEND":
		r.cmdSend(sess, fields)
	case "DEBUG":
		r.cmdDebug(sess, fields)
	default:
		sess.enqueue("ERR UNKNOWN_CMD\n")
	}
}
