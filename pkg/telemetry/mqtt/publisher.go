package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/fport.go/pkg/framework"
	"github.com/robotalks/fport.go/pkg/telemetry/msgs"
)

// PublishTimeout bounds the wait for a single publish.
var PublishTimeout = time.Second

// ReceiverMeta describes a receiver, published retained.
type ReceiverMeta struct {
	Port     string            `json:"port,omitempty"`
	BaudRate uint              `json:"baud_rate,omitempty"`
	Raw      bool              `json:"raw,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// ReceiverInfo identifies a receiver on the broker.
type ReceiverInfo struct {
	ID   string
	Meta ReceiverMeta
}

// MetaTopic is the retained topic of the receiver description.
func MetaTopic(id string) string {
	return "fport/" + id + "/meta"
}

// MsgTopic is the topic carrying typed events of the receiver.
func MsgTopic(id string) string {
	return "fport/" + id + "/msg"
}

// IDFromTopic extracts the receiver ID from a topic under fport/.
func IDFromTopic(topic string) (string, bool) {
	if !MatchTopic(topic, "fport/+/+") {
		return "", false
	}
	start := len("fport/")
	for n := start; n < len(topic); n++ {
		if topic[n] == '/' {
			return topic[start:n], true
		}
	}
	return "", false
}

// Publisher publishes receiver events to MQTT.
type Publisher struct {
	Queue *Queue
	Info  ReceiverInfo

	metaJSON []byte
}

// NewPublisher creates a Publisher.
func NewPublisher(brokerURL string, info ReceiverInfo) (*Publisher, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+MetaTopic(info.ID), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("fport:" + info.ID)
	}
	p := &Publisher{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	p.Queue.OnConnect = func(*Queue) { p.onConnected() }
	return p, nil
}

// Publish sends a typed event.
func (p *Publisher) Publish(msg msgs.SerializableMessage) error {
	data, err := msgs.Encode(msg)
	if err != nil {
		return err
	}
	token := p.Queue.Pub(MsgTopic(p.Info.ID), data)
	if !token.WaitTimeout(PublishTimeout) {
		return context.DeadlineExceeded
	}
	return token.Error()
}

// Control implements framework.Controller.
// Only the latest message of each type in an iteration is published.
func (p *Publisher) Control(cc fx.ControlContext) error {
	if !p.Queue.Client.IsConnected() {
		return nil
	}
	var errs fx.AggregatedError
	for _, msg := range LatestByType(cc.Messages()) {
		errs.Add(p.Publish(msg))
	}
	return errs.Aggregate()
}

// AddToLoop implements framework.LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	loop.AddController(p)
	loop.AddRunnable(p)
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	p.Queue.Connect()
	<-ctx.Done()
	p.Queue.PubWith(MetaTopic(p.Info.ID), nil, 1, true).WaitTimeout(PublishTimeout)
	p.Queue.Close()
	return nil
}

func (p *Publisher) onConnected() {
	glog.V(1).Infof("publishing receiver %s", p.Info.ID)
	p.Queue.PubWith(MetaTopic(p.Info.ID), p.metaJSON, 1, true)
}

// LatestByType keeps the last serializable message of each type,
// ordered by first appearance.
func LatestByType(messages []fx.Message) []msgs.SerializableMessage {
	var result []msgs.SerializableMessage
	index := make(map[uint32]int)
	for _, m := range messages {
		msg, ok := m.(msgs.SerializableMessage)
		if !ok {
			continue
		}
		if n, exist := index[msg.TypeID()]; exist {
			result[n] = msg
			continue
		}
		index[msg.TypeID()] = len(result)
		result = append(result, msg)
	}
	return result
}
