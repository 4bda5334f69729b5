// Package api defines the matchmaking relay wire format.
//
// Each frame is a JSON object with a mandatory session key and an
// optional type tag:
//
//	      key - (required) the session identifier shared by the peers;
//	     type - (recommended) one of the predefined message types;
//	 clientId - (optional) sender-asserted id, not authoritative;
//	  (other) - arbitrary payload, relayed untouched.
//
// The relay annotates every forwarded copy with the fromClientId and
// toClientId fields, which carry the server-assigned connection ids of
// the sender and the recipient. Everything else passes through verbatim.
//
// Example:
//
//	{"key":"room1","type":"offer","sdp":"...","fromClientId":3,"toClientId":5}
package api

import (
	"github.com/goccy/go-json"
)

// Message types exchanged through the relay. Anything else is treated
// as an application-specific type and relayed all the same.
const (
	Offer      = "offer"
	Answer     = "answer"
	Ice        = "ice"
	Ready      = "ready"
	Quit       = "quit"
	Error      = "error"
	IceServers = "iceServers"
)

// Wire field names added or consumed by the relay.
const (
	KeyField  = "key"
	TypeField = "type"
	FromField = "fromClientId"
	ToField   = "toClientId"
)

// Message is a decoded relay frame. The values stay raw so that the
// payload survives the round trip byte-identical.
type Message map[string]json.RawMessage

// ParseMessage decodes a single frame. Only top-level JSON objects
// qualify, everything else is an error.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Key returns the session key of the message, or false when
// the field is missing or is not a JSON string.
func (m Message) Key() (string, bool) { return m.str(KeyField) }

// Type returns the message type tag or an empty string.
func (m Message) Type() string {
	t, _ := m.str(TypeField)
	return t
}

func (m Message) str(field string) (string, bool) {
	raw, ok := m[field]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Route encodes a copy of the message annotated with the sender and
// recipient connection ids. Called once per recipient since the
// toClientId value differs for each delivery.
func (m Message) Route(from, to int64) ([]byte, error) {
	fromRaw, _ := json.Marshal(from)
	toRaw, _ := json.Marshal(to)
	m[FromField] = fromRaw
	m[ToField] = toRaw
	return json.Marshal(m)
}

// IceServer describes a single NAT-traversal server, with optional
// access credentials for TURN relays.
type IceServer struct {
	Urls       string `json:"urls"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

type iceServersOut struct {
	Key        string      `json:"key"`
	ClientId   int64       `json:"clientId"`
	Type       string      `json:"type"`
	IceServers []IceServer `json:"iceServers"`
}

type quitOut struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// IceServersMessage encodes the server-originated reply to an offer,
// carrying the NAT-traversal server list back to the offer's sender.
func IceServersMessage(key string, clientId int64, servers []IceServer) ([]byte, error) {
	return json.Marshal(iceServersOut{Key: key, ClientId: clientId, Type: IceServers, IceServers: servers})
}

// QuitMessage encodes the notification sent to the remaining session
// members when a peer disconnects.
func QuitMessage(key string) []byte {
	out, _ := json.Marshal(quitOut{Type: Quit, Key: key})
	return out
}
