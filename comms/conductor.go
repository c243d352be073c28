package comms

import (
	"context"
	"encoding/json"
	"github.com/CodedInternet/gowalker/onboard"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/sirupsen/logrus"
	"sync"
	"time"
)

var log = logrus.WithFields(logrus.Fields{"pkg": "comms"})

// Loop is the side of onboard.Loop the transports use.
type Loop interface {
	Submit(ctx context.Context, cmd onboard.Command) (onboard.Reply, error)
	Snapshot() onboard.Status
}

// Client is anything events can be pushed to. Send must not block.
type Client interface {
	Send(msg []byte) error
	String() string
}

// Conductor routes messages from every transport into the loop and fans
// events back out to every connected client.
type Conductor struct {
	loop   Loop
	parser *Parser

	lock    sync.RWMutex
	clients map[Client]struct{}

	lowBattery bool
}

func NewConductor(loop Loop) *Conductor {
	return &Conductor{
		loop:    loop,
		parser:  NewParser(),
		clients: make(map[Client]struct{}),
	}
}

func (c *Conductor) Register(cl Client) {
	c.lock.Lock()
	c.clients[cl] = struct{}{}
	n := len(c.clients)
	c.lock.Unlock()
	log.WithFields(logrus.Fields{"client": cl.String(), "clients": n}).Info("client connected")
}

func (c *Conductor) Unregister(cl Client) {
	c.lock.Lock()
	delete(c.clients, cl)
	n := len(c.clients)
	c.lock.Unlock()
	log.WithFields(logrus.Fields{"client": cl.String(), "clients": n}).Info("client disconnected")
}

// Broadcast marshals v once and sends it to every client.
func (c *Conductor) Broadcast(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("unable to marshal broadcast")
		return
	}

	c.lock.RLock()
	defer c.lock.RUnlock()
	for cl := range c.clients {
		if err := cl.Send(msg); err != nil {
			log.WithError(err).WithField("client", cl.String()).Warn("broadcast dropped")
		}
	}
}

// SequenceComplete is handed to the robot as its sequence callback.
func (c *Conductor) SequenceComplete(id uint32) {
	c.Broadcast(Event{Event: "sequenceComplete", SequenceID: id})
}

// Handle runs one message through the loop and returns the encoded reply.
func (c *Conductor) Handle(ctx context.Context, data []byte) []byte {
	out, err := json.Marshal(c.handle(ctx, data))
	if err != nil {
		log.WithError(err).Error("unable to marshal reply")
		return []byte(`{"status":"error","message":"internal error"}`)
	}
	return out
}

func (c *Conductor) handle(ctx context.Context, data []byte) interface{} {
	req, err := c.parser.Parse(data)
	if err == nil {
		var reply onboard.Reply
		reply, err = c.loop.Submit(ctx, req.Command)
		if err == nil {
			return success(req, reply)
		}
	}

	log.WithError(err).WithField("code", errors.Code(err)).Debug("command refused")
	if req.Typed || (isMalformed(err) && looksTyped(data)) {
		return NewErrorMessage(err)
	}
	return Response{Status: "error", Message: err.Error()}
}

func success(req Request, reply onboard.Reply) interface{} {
	if !req.Typed {
		return Response{Status: "success", Message: reply.Message, SequenceID: reply.SequenceID}
	}
	if reply.Type != "" {
		return TypedMessage{Type: reply.Type, Data: reply.Data}
	}
	return TypedMessage{Type: "ack", Data: map[string]string{"message": reply.Message}}
}

func isMalformed(err error) bool {
	return errors.Code(err) == errors.CodeMalformed
}

// Messages carrying a type key get typed errors even when the rest did not parse.
func looksTyped(data []byte) bool {
	var envelope struct {
		Type *json.RawMessage `json:"type"`
	}
	return json.Unmarshal(data, &envelope) == nil && envelope.Type != nil
}

// Status builds the frame broadcast every status interval.
func (c *Conductor) Status(now time.Time) TypedMessage {
	return TypedMessage{
		Type:      "status",
		Timestamp: now.UnixNano() / int64(time.Millisecond),
		Data:      c.loop.Snapshot(),
	}
}

// RunStatus broadcasts a status frame every interval and raises a low
// battery error once each time the battery goes low.
func (c *Conductor) RunStatus(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.publish(now)
		}
	}
}

func (c *Conductor) publish(now time.Time) {
	frame := c.Status(now)
	c.Broadcast(frame)

	low := frame.Data.(onboard.Status).Low
	if low && !c.lowBattery {
		log.Warn("battery low")
		c.Broadcast(NewErrorMessage(errors.ErrLowBattery))
	}
	c.lowBattery = low
}
