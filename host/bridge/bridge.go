// Package bridge mirrors responder calls onto an MQTT broker so replies can come from
// any subscribed client.
//
// Topics, under the prefix taken from the broker URL path:
//
//	call      published per received call: {"seq":1,"at":"..."}
//	answered  published per successful reply: {"seq":1,"code":1,"label":"COMING NOW"}
//	reply     subscribed; payload is a code ("1", "0x02") or a label
//	error     published when a reply from the broker is rejected
package bridge

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"callbell/host/responder"
	"callbell/host/sh"
)

const (
	TopicCall     = "call"
	TopicAnswered = "answered"
	TopicReply    = "reply"
	TopicError    = "error"
)

// Broker is the subset of paho.Client the bridge uses.
type Broker interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Replier answers calls; *responder.Responder implements it.
type Replier interface {
	Reply(code byte) error
	Codes() []byte
	Label(code byte) string
}

type callMessage struct {
	Seq int       `json:"seq"`
	At  time.Time `json:"at"`
}

type answeredMessage struct {
	Seq   int    `json:"seq"`
	Code  byte   `json:"code"`
	Label string `json:"label"`
}

// Bridge connects a responder to a broker.
type Bridge struct {
	broker Broker
	prefix string
	r      Replier
}

// ClientOptionsFromURL creates client options from mqtt://[user:pass@]host:port/prefix/.
// The client id defaults to one derived from the machine id.
func ClientOptionsFromURL(brokerURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", err
	}
	if u.Host == "" {
		return nil, "", errors.New("broker url has no host")
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}

	prefix := strings.TrimPrefix(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	clientID := u.Query().Get("client-id")
	if clientID == "" {
		clientID = defaultClientID()
	}
	opts.SetClientID(clientID)
	return opts, prefix, nil
}

func defaultClientID() string {
	id, err := machineid.ID()
	if err != nil || len(id) < 8 {
		glog.Warningf("machine id unavailable (%v), using a fixed client id", err)
		return "callbell-responder"
	}
	return "callbell-" + id[:8]
}

// Connect dials the broker described by brokerURL. The reply topic is subscribed on
// every (re)connect.
func Connect(brokerURL string, r *responder.Responder) (*Bridge, paho.Client, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, nil, err
	}
	var b *Bridge
	opts.SetOnConnectHandler(func(paho.Client) {
		glog.Info("broker connected")
		if b != nil {
			b.subscribe()
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("broker connection lost: %v", err)
	})
	client := paho.NewClient(opts)
	b = New(client, prefix, r)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, nil, err
	}
	return b, client, nil
}

// New creates a bridge publishing under prefix.
func New(broker Broker, prefix string, r Replier) *Bridge {
	return &Bridge{broker: broker, prefix: prefix, r: r}
}

// Start subscribes to the reply topic.
func (b *Bridge) Start() error {
	token := b.subscribe()
	token.Wait()
	return token.Error()
}

func (b *Bridge) subscribe() paho.Token {
	if glog.V(2) {
		glog.Infof("SUB %q", b.prefix+TopicReply)
	}
	return b.broker.Subscribe(b.prefix+TopicReply, 1, func(_ paho.Client, msg paho.Message) {
		b.HandleReply(msg.Payload())
	})
}

// Announce publishes a received call.
func (b *Bridge) Announce(c responder.Call) {
	b.publish(TopicCall, callMessage{Seq: c.Seq, At: c.At})
}

// HandleReply parses payload as a code or label and answers the waiting call.
func (b *Bridge) HandleReply(payload []byte) {
	arg := strings.TrimSpace(string(payload))
	code, err := b.parse(arg)
	if err == nil {
		err = b.r.Reply(code)
	}
	if err != nil {
		glog.Warningf("broker reply %q rejected: %v", arg, err)
		b.publish(TopicError, map[string]string{"reply": arg, "error": err.Error()})
		return
	}
	glog.V(1).Infof("broker reply %d sent", code)
}

// Answered publishes a successful reply.
func (b *Bridge) Answered(c responder.Call) {
	b.publish(TopicAnswered, answeredMessage{Seq: c.Seq, Code: c.Code, Label: b.r.Label(c.Code)})
}

func (b *Bridge) parse(arg string) (byte, error) {
	if code, err := sh.ParseByte(arg); err == nil {
		return code, nil
	}
	for _, code := range b.r.Codes() {
		if strings.EqualFold(b.r.Label(code), arg) {
			return code, nil
		}
	}
	return 0, responder.ErrUnknownCode
}

func (b *Bridge) publish(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("encode %s: %v", topic, err)
		return
	}
	if glog.V(2) {
		glog.Infof("PUB %q %s", b.prefix+topic, payload)
	}
	b.broker.Publish(b.prefix+topic, 1, false, payload)
}
