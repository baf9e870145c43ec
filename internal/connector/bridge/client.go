// Package bridge implements connector.Connector over a JSON-RPC websocket to
// a wallet bridge process. The bridge owns the pairing protocol; this client
// only issues calls and relays its notifications.
package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/ledger"
)

// ErrClosed is returned for calls on a closed client.
var ErrClosed = errors.New("bridge connection closed")

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	dialTimeout  = 10 * time.Second

	// maxFinishedPairings bounds how many abandoned pairing topics are
	// remembered for discarding late outcomes.
	maxFinishedPairings = 64
)

// Logger receives connection traces.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// pairingOutcome resolves a pending Connect.
type pairingOutcome struct {
	session *connector.Session
	err     error
}

// Client is a bridge-backed wallet connector.
type Client struct {
	conn    *websocket.Conn
	network ledger.Network
	logger  Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu       sync.Mutex
	pending  map[uint64]chan response
	pairings map[string]chan pairingOutcome
	finished map[string]struct{}
	finOrder []string
	sessions map[string]connector.Session
	order    []string
	handlers []connector.Handler

	done      chan struct{}
	closeOnce sync.Once
}

var _ connector.Connector = (*Client)(nil)

// Dial connects to the bridge at url and initializes it with opts.
func Dial(ctx context.Context, url string, opts connector.Options, logger Logger) (*Client, error) {
	if logger == nil {
		logger = nopLogger{}
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing bridge %s: %w", url, err)
	}

	c := &Client{
		conn:     conn,
		network:  opts.Network,
		logger:   logger,
		pending:  make(map[uint64]chan response),
		pairings: make(map[string]chan pairingOutcome),
		finished: make(map[string]struct{}),
		sessions: make(map[string]connector.Session),
		done:     make(chan struct{}),
	}

	go c.readLoop()
	go c.pingLoop()

	if err := c.init(ctx, opts); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewFactory returns a connector.Factory dialing url.
func NewFactory(url string, logger Logger) connector.Factory {
	return func(ctx context.Context, opts connector.Options) (connector.Connector, error) {
		return Dial(ctx, url, opts, logger)
	}
}

func (c *Client) init(ctx context.Context, opts connector.Options) error {
	meta, err := json.Marshal(opts.Metadata)
	if err != nil {
		return err
	}

	params := initParams{
		ProjectID: opts.ProjectID,
		Network:   opts.Network.String(),
		Metadata:  meta,
		Methods:   opts.Methods,
		Events:    opts.Events,
	}
	for _, s := range opts.Resume {
		if s.ResumeKey == "" {
			continue
		}
		params.Resume = append(params.Resume, resumeEntry{Topic: s.Topic, ResumeKey: s.ResumeKey})
	}

	var res initResult
	if err := c.call(ctx, methodInit, params, &res); err != nil {
		return fmt.Errorf("initializing bridge: %w", err)
	}

	for _, ws := range res.Sessions {
		c.storeSession(toSession(ws))
	}
	c.logger.Debug("bridge initialized with %d session(s)", len(res.Sessions))
	return nil
}

// Connect implements connector.Connector.
func (c *Client) Connect(ctx context.Context, onURI func(string)) (*connector.Session, error) {
	var pair pairResult
	if err := c.call(ctx, methodPair, struct{}{}, &pair); err != nil {
		return nil, err
	}

	outcome := c.pairingChan(pair.PairingTopic)
	settled := false
	defer func() { c.dropPairing(pair.PairingTopic, settled) }()

	c.logger.Debug("pairing uri issued for topic %s", pair.PairingTopic)
	if onURI != nil && pair.URI != "" {
		onURI(pair.URI)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	case out := <-outcome:
		settled = true
		return out.session, out.err
	}
}

// Sessions implements connector.Connector.
func (c *Client) Sessions() []connector.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]connector.Session, 0, len(c.order))
	for _, topic := range c.order {
		out = append(out, c.sessions[topic])
	}
	return out
}

// Disconnect implements connector.Connector.
func (c *Client) Disconnect(ctx context.Context, topic string) error {
	err := c.call(ctx, methodDisconnect, topicParams{Topic: topic}, nil)
	c.removeSession(topic)
	return err
}

// DisconnectAll implements connector.Connector.
func (c *Client) DisconnectAll(ctx context.Context) error {
	var errs []error
	for _, s := range c.Sessions() {
		if err := c.Disconnect(ctx, s.Topic); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SignAndExecuteTransaction implements connector.Connector.
func (c *Client) SignAndExecuteTransaction(ctx context.Context, signer string, tx []byte) (string, error) {
	if !strings.Contains(signer, ":") {
		signer = ledger.Namespaced(c.network, signer)
	}
	params := signParams{
		SignerAccountID: signer,
		TransactionList: base64.StdEncoding.EncodeToString(tx),
	}

	var res signResult
	if err := c.call(ctx, methodSignExecute, params, &res); err != nil {
		return "", err
	}
	return res.TransactionID, nil
}

// OnEvent implements connector.Connector.
func (c *Client) OnEvent(h connector.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Close implements connector.Connector.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()

		err = c.conn.Close()

		c.mu.Lock()
		for id, ch := range c.pending {
			delete(c.pending, id)
			ch <- response{err: ErrClosed}
		}
		c.handlers = nil
		c.mu.Unlock()
	})
	return err
}

// call sends a request and decodes its result into out (which may be nil).
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}

	id := c.nextID.Add(1)
	ch := make(chan response, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return ErrClosed
	default:
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(envelope{JSONRPC: jsonRPCVersion, ID: &id, Method: method, Params: raw}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case resp := <-ch:
		if resp.err != nil {
			return resp.err
		}
		if out == nil || len(resp.result) == 0 {
			return nil
		}
		return json.Unmarshal(resp.result, out)
	}
}

func (c *Client) write(msg envelope) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing to bridge: %w", err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer func() { _ = c.Close() }()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Error("bridge read failed: %v", err)
				}
			}
			return
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error("bridge sent malformed message: %v", err)
			continue
		}

		if msg.isResponse() {
			c.resolve(msg)
			continue
		}
		c.notify(msg)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) resolve(msg envelope) {
	c.mu.Lock()
	ch, ok := c.pending[*msg.ID]
	delete(c.pending, *msg.ID)
	c.mu.Unlock()

	if !ok {
		return
	}
	if msg.Error != nil {
		ch <- response{err: msg.Error}
		return
	}
	ch <- response{result: msg.Result}
}

//nolint:gocyclo // one case per bridge notification
func (c *Client) notify(msg envelope) {
	switch msg.Method {
	case notifySettled:
		var p settledParams
		if !c.decode(msg, &p) {
			return
		}
		s := toSession(p.Session)
		c.storeSession(s)
		c.deliverPairing(p.PairingTopic, pairingOutcome{session: &s})

	case notifyRejected:
		var p rejectedParams
		if !c.decode(msg, &p) {
			return
		}
		c.deliverPairing(p.PairingTopic, pairingOutcome{err: errors.New(p.Message)})

	case notifyUpdate, notifyIframeCreate:
		var p sessionParams
		if !c.decode(msg, &p) {
			return
		}
		s := toSession(p.Session)
		c.storeSession(s)
		kind := connector.SessionUpdated
		if msg.Method == notifyIframeCreate {
			kind = connector.IframeSessionCreated
		}
		c.emit(connector.Event{Kind: kind, Topic: s.Topic, Session: &s})

	case notifyDelete:
		var p topicParams
		if !c.decode(msg, &p) {
			return
		}
		c.removeSession(p.Topic)
		c.emit(connector.Event{Kind: connector.SessionDeleted, Topic: p.Topic})

	case notifyEvent:
		var p eventParams
		if !c.decode(msg, &p) {
			return
		}
		c.emit(connector.Event{Kind: connector.SessionEvent, Topic: p.Topic, Name: p.Name, Data: p.Data})

	default:
		c.logger.Debug("ignoring bridge notification %q", msg.Method)
	}
}

func (c *Client) decode(msg envelope, v any) bool {
	if err := json.Unmarshal(msg.Params, v); err != nil {
		c.logger.Error("bridge notification %s malformed: %v", msg.Method, err)
		return false
	}
	return true
}

func (c *Client) emit(ev connector.Event) {
	c.mu.Lock()
	handlers := append([]connector.Handler(nil), c.handlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// pairingChan returns the outcome channel for a pairing topic, creating it
// if the outcome has not arrived yet.
func (c *Client) pairingChan(topic string) chan pairingOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pairings[topic]
	if !ok {
		ch = make(chan pairingOutcome, 1)
		c.pairings[topic] = ch
	}
	return ch
}

// deliverPairing hands an outcome to its Connect. Outcomes for a topic whose
// Connect already returned are discarded.
func (c *Client) deliverPairing(topic string, out pairingOutcome) {
	c.mu.Lock()
	if _, done := c.finished[topic]; done {
		c.forgetFinishedLocked(topic)
		c.mu.Unlock()
		c.logger.Debug("discarding late pairing outcome for topic %s", topic)
		return
	}
	c.mu.Unlock()

	ch := c.pairingChan(topic)
	select {
	case ch <- out:
	default:
	}
}

// dropPairing is called when Connect returns. An unsettled topic is
// remembered so a late outcome cannot recreate its channel.
func (c *Client) dropPairing(topic string, settled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pairings[topic]
	delete(c.pairings, topic)
	if settled || (ok && len(ch) > 0) {
		return
	}
	c.finished[topic] = struct{}{}
	c.finOrder = append(c.finOrder, topic)
	if len(c.finOrder) > maxFinishedPairings {
		delete(c.finished, c.finOrder[0])
		c.finOrder = c.finOrder[1:]
	}
}

func (c *Client) forgetFinishedLocked(topic string) {
	delete(c.finished, topic)
	for i, t := range c.finOrder {
		if t == topic {
			c.finOrder = append(c.finOrder[:i], c.finOrder[i+1:]...)
			break
		}
	}
}

func (c *Client) storeSession(s connector.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[s.Topic]; !ok {
		c.order = append(c.order, s.Topic)
	}
	c.sessions[s.Topic] = s
}

func (c *Client) removeSession(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[topic]; !ok {
		return
	}
	delete(c.sessions, topic)
	for i, t := range c.order {
		if t == topic {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func toSession(ws wireSession) connector.Session {
	s := connector.Session{
		Topic:     ws.Topic,
		Accounts:  ws.Accounts,
		ResumeKey: ws.ResumeKey,
		Peer: connector.Peer{
			Name:        ws.Peer.Name,
			Description: ws.Peer.Description,
			URL:         ws.Peer.URL,
			Icons:       ws.Peer.Icons,
		},
	}
	if ws.Expiry > 0 {
		s.Expiry = time.Unix(ws.Expiry, 0)
	}
	return s
}
