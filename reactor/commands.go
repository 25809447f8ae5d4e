package reactor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lattice-trade/orderbook/book"
)

func (r *Reactor) cmdPing(sess *Session) {
	sess.enqueue("PONG\n")
}

// cmdAuth validates the passkey and, on success, promotes the session per
// the supersede-login policy. Only the verb and the BUY/SELL enum
// tokens are folded to upper-case elsewhere; passkey and client_id here
// keep whatever case the client sent.
func (r *Reactor) cmdAuth(sess *Session, fields []string) {
	if len(fields) != 3 {
		sess.enqueue("ERR BAD_COMMAND\n")
		return
	}
	passkey, clientID := fields[1], fields[2]
	if passkey != r.cfg.Passkey {
		sess.enqueue("ERR BAD_PASSKEY\n")
		return
	}
	r.promote(sess, clientID)
	sess.enqueue("OK AUTH\n")
}

func (r *Reactor) requireAuth(sess *Session) bool {
	if sess.authenticated() {
		return true
	}
	sess.enqueue("UNAUTHORIZED\n")
	return false
}

func parseSide(tok string) (book.Side, error) {
	switch strings.ToUpper(tok) {
	case "BUY":
		return book.Buy, nil
	case "SELL":
		return book.Sell, nil
	default:
		return 0, errBadSide
	}
}

// parseOrderType maps the optional sixth NEWL token to an OrderType,
// defaulting to Limit when the token is empty (the five-token form).
func parseOrderType(tok string) (book.OrderType, error) {
	switch strings.ToUpper(tok) {
	case "", "LIMIT":
		return book.Limit, nil
	case "MARKET":
		return book.Market, nil
	case "IOC":
		return book.IOC, nil
	case "FOK":
		return book.FOK, nil
	case "POST_ONLY", "POSTONLY":
		return book.PostOnly, nil
	default:
		return "", errBadOrderType
	}
}

// cmdNewl accepts an optional trailing order-type token
// (LIMIT/MARKET/IOC/FOK/POST_ONLY) after the price; omitting it keeps the
// five-token BUY/SELL+symbol+qty+price form and defaults to Limit. Market
// orders carry no price, so BAD_PRICE is only enforced for price-bearing
// types.
func (r *Reactor) cmdNewl(sess *Session, fields []string) {
	if !r.requireAuth(sess) {
		return
	}
	if len(fields) != 5 && len(fields) != 6 {
		sess.enqueue("ERR BAD_COMMAND\n")
		return
	}

	side, err := parseSide(fields[1])
	if err != nil {
		sess.enqueue("ERR BAD_SIDE " + fields[1] + "\n")
		return
	}

	symbol := fields[2]
	ins, ok := r.registry.Get(symbol)
	if !ok {
		sess.enqueue("ERR BAD_SYMBOL\n")
		return
	}

	qty, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil || qty == 0 {
		sess.enqueue("ERR BAD_QTY\n")
		return
	}

	price, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		sess.enqueue("ERR BAD_PRICE\n")
		return
	}

	orderType := book.Limit
	if len(fields) == 6 {
		orderType, err = parseOrderType(fields[5])
		if err != nil {
			sess.enqueue("ERR BAD_TYPE " + fields[5] + "\n")
			return
		}
	}
	if orderType != book.Market && price == 0 {
		sess.enqueue("ERR BAD_PRICE\n")
		return
	}

	order := &book.Order{
		ID:         r.idgen.Next(),
		ClientID:   sess.clientID,
		Price:      price,
		InitialQty: qty,
		Remaining:  qty,
		Side:       side,
		Type:       orderType,
		ArrivedAt:  time.Now(),
	}

	r.publish(ins.Place(order))
	sess.enqueue("REQUEST_MADE\n")
}

func (r *Reactor) cmdSub(sess *Session, fields []string) {
	if !r.requireAuth(sess) {
		return
	}
	if len(fields) != 2 {
		sess.enqueue("ERR BAD_COMMAND\n")
		return
	}
	r.notifier.Subscribe(fields[1], sess.clientID)
	sess.enqueue("SUBSCRIBED\n")
}

// cmdSend concatenates tokens 2..n with single spaces rather than
// truncating to the first word, so multi-word messages survive intact.
func (r *Reactor) cmdSend(sess *Session, fields []string) {
	if !r.requireAuth(sess) {
		return
	}
	if len(fields) < 3 {
		sess.enqueue("ERR BAD_COMMAND\n")
		return
	}
	group := fields[1]
	message := strings.Join(fields[2:], " ")
	r.notifier.NotifyGroup(group, message+"\n")
}

func (r *Reactor) cmdDebug(sess *Session, fields []string) {
	if len(fields) < 2 {
		sess.enqueue("ERR BAD_COMMAND\n")
		return
	}
	switch strings.ToUpper(fields[1]) {
	case "AUTH":
		r.cmdDebugAuth(sess, fields)
	case "LIST":
		r.cmdDebugList(sess)
	case "INSTRUMENTS":
		r.cmdDebugInstruments(sess)
	case "ORDERS":
		r.cmdDebugOrders(sess, fields)
	default:
		sess.enqueue("ERR UNKNOWN_CMD\n")
	}
}

func (r *Reactor) cmdDebugAuth(sess *Session, fields []string) {
	if len(fields) != 3 {
		sess.enqueue("ERR BAD_COMMAND\n")
		return
	}
	if fields[2] != r.cfg.AdminSecret {
		sess.enqueue("BAD_SECRET\n")
		return
	}
	sess.admin = true
	sess.enqueue("AUTHORIZED\n")
}

func (r *Reactor) requireAdmin(sess *Session) bool {
	if sess.admin {
		return true
	}
	sess.enqueue("UNAUTHORIZED\n")
	return false
}

// cmdDebugList renders the one-line-per-session admin view: client id,
// authenticated flag, and subscribed groups, for every connected session
// (not just this admin's own).
func (r *Reactor) cmdDebugList(sess *Session) {
	if !r.requireAdmin(sess) {
		return
	}
	for _, view := range r.adminSessions() {
		clientID := view.clientID
		if clientID == "" {
			clientID = "-"
		}
		subs := "-"
		if len(view.subscriptions) > 0 {
			subs = strings.Join(view.subscriptions, ",")
		}
		sess.enqueue(fmt.Sprintf("%s %t %s\n", clientID, view.authenticated, subs))
	}
}

func (r *Reactor) cmdDebugInstruments(sess *Session) {
	if !r.requireAdmin(sess) {
		return
	}
	for _, symbol := range r.registry.Symbols() {
		ins, ok := r.registry.Get(symbol)
		if !ok {
			continue
		}
		s := ins.Stats
		sess.enqueue(fmt.Sprintf("%s LTP:%d HIGH:%d LOW:%d OPEN:%d CLOSE:%d VOL:%d VWAP:%s\n",
			symbol, s.LastTradePrice, s.High, s.Low, s.Open, s.Close, s.VolumeToday, s.VWAP().String()))
	}
}

func (r *Reactor) cmdDebugOrders(sess *Session, fields []string) {
	if !r.requireAdmin(sess) {
		return
	}
	if len(fields) != 3 {
		sess.enqueue("ERR BAD_COMMAND\n")
		return
	}
	symbol := fields[2]
	if _, ok := r.registry.Get(symbol); !ok {
		sess.enqueue("ERR BAD_SYMBOL\n")
		return
	}
	depth := r.depthBookFor(symbol)
	for _, lvl := range depth.Top(book.Buy, 10) {
		sess.enqueue(fmt.Sprintf("BID %d %d\n", lvl.Price, lvl.Qty))
	}
	for _, lvl := range depth.Top(book.Sell, 10) {
		sess.enqueue(fmt.Sprintf("ASK %d %d\n", lvl.Price, lvl.Qty))
	}
}
