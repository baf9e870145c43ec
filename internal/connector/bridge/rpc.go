package bridge

import (
	"encoding/json"
	"fmt"
)

const jsonRPCVersion = "2.0"

// Bridge methods.
const (
	methodInit         = "bridge_init"
	methodPair         = "pairing_connect"
	methodDisconnect   = "session_disconnect"
	methodSignExecute  = "hedera_signAndExecuteTransaction"
	notifySettled      = "session_settled"
	notifyRejected     = "session_rejected"
	notifyUpdate       = "session_update"
	notifyDelete       = "session_delete"
	notifyEvent        = "session_event"
	notifyIframeCreate = "iframe_session_created"
)

// RPCError is an error returned by the bridge.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

// envelope covers requests, responses and notifications.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func (e *envelope) isResponse() bool {
	return e.ID != nil && e.Method == ""
}

type response struct {
	result json.RawMessage
	err    error
}

type initParams struct {
	ProjectID string          `json:"projectId"`
	Network   string          `json:"network"`
	Metadata  json.RawMessage `json:"metadata"`
	Methods   []string        `json:"methods"`
	Events    []string        `json:"events"`
	Resume    []resumeEntry   `json:"resume,omitempty"`
}

type resumeEntry struct {
	Topic     string `json:"topic"`
	ResumeKey string `json:"resumeKey"`
}

type initResult struct {
	Sessions []wireSession `json:"sessions"`
}

type pairResult struct {
	URI          string `json:"uri"`
	PairingTopic string `json:"pairingTopic"`
}

type topicParams struct {
	Topic string `json:"topic"`
}

type signParams struct {
	SignerAccountID string `json:"signerAccountId"`
	TransactionList string `json:"transactionList"`
}

type signResult struct {
	TransactionID string `json:"transactionId"`
}

type settledParams struct {
	PairingTopic string      `json:"pairingTopic"`
	Session      wireSession `json:"session"`
}

type rejectedParams struct {
	PairingTopic string `json:"pairingTopic"`
	Message      string `json:"message"`
}

type sessionParams struct {
	Session wireSession `json:"session"`
}

type eventParams struct {
	Topic string   `json:"topic"`
	Name  string   `json:"name"`
	Data  []string `json:"data"`
}

// wireSession is the bridge's session shape. Expiry is unix seconds.
type wireSession struct {
	Topic     string   `json:"topic"`
	Accounts  []string `json:"accounts"`
	Expiry    int64    `json:"expiry"`
	ResumeKey string   `json:"resumeKey,omitempty"`
	Peer      struct {
		Name        string   `json:"name"`
		Description string   `json:"description,omitempty"`
		URL         string   `json:"url,omitempty"`
		Icons       []string `json:"icons,omitempty"`
	} `json:"peer"`
}
