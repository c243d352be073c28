package comms

import (
	"context"
	"encoding/json"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"net/http"
	"sync"
)

// Data channel labels a browser opens on its offer.
const (
	EventChannel   = "data"
	CommandChannel = "command"
)

var ErrChannelClosed = errors.New("data channel not open")

// WebRTC answers browser offers and attaches each peer to the conductor.
type WebRTC struct {
	conductor *Conductor
	api       *webrtc.API
	config    webrtc.Configuration
}

func NewWebRTC(c *Conductor, servers []webrtc.ICEServer) *WebRTC {
	// Trickle so the answer does not wait for candidate gathering.
	s := webrtc.SettingEngine{}
	s.SetTrickle(true)

	return &WebRTC{
		conductor: c,
		api:       webrtc.NewAPI(webrtc.WithSettingEngine(s)),
		config:    webrtc.Configuration{ICEServers: servers},
	}
}

// Peer is one browser. Commands arrive on the command channel and are
// answered there; events and status frames leave on the event channel.
type Peer struct {
	conductor *Conductor
	pc        *webrtc.PeerConnection
	signal    func([]byte) error

	lock       sync.Mutex
	events     *webrtc.DataChannel
	registered bool
	answered   bool
	pending    []webrtc.ICECandidateInit
}

func (p *Peer) String() string {
	return "webrtc"
}

func (p *Peer) Send(msg []byte) error {
	p.lock.Lock()
	dc := p.events
	p.lock.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelClosed
	}
	return dc.SendText(string(msg))
}

func (p *Peer) sendSignal(v interface{}) {
	msg, err := json.Marshal(v)
	if err == nil {
		err = p.signal(msg)
	}
	if err != nil {
		log.WithError(err).Warn("unable to signal peer")
	}
}

// Candidates found before the answer went out are held back so the browser
// always sees the answer first.
func (p *Peer) onCandidate(c *webrtc.ICECandidate) {
	if c == nil {
		return
	}
	p.lock.Lock()
	if !p.answered {
		p.pending = append(p.pending, c.ToJSON())
		p.lock.Unlock()
		return
	}
	p.lock.Unlock()
	p.sendSignal(c.ToJSON())
}

func (p *Peer) flushCandidates() {
	p.lock.Lock()
	p.answered = true
	pending := p.pending
	p.pending = nil
	p.lock.Unlock()
	for _, c := range pending {
		p.sendSignal(c)
	}
}

func (p *Peer) onDataChannel(ctx context.Context, dc *webrtc.DataChannel) {
	switch dc.Label() {
	case EventChannel:
		dc.OnOpen(func() {
			p.lock.Lock()
			p.events = dc
			first := !p.registered
			p.registered = true
			p.lock.Unlock()
			if first {
				p.conductor.Register(p)
			}
		})

	case CommandChannel:
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if err := dc.SendText(string(p.conductor.Handle(ctx, msg.Data))); err != nil {
				log.WithError(err).Warn("unable to reply on command channel")
			}
		})

	default:
		log.WithField("label", dc.Label()).Warn("ignoring unknown data channel")
	}
}

func (p *Peer) onState(state webrtc.ICEConnectionState) {
	log.WithField("state", state.String()).Debug("peer connection state")
	switch state {
	case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateDisconnected, webrtc.ICEConnectionStateClosed:
		go p.Close()
	}
}

func (p *Peer) AddICECandidate(c webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(c)
}

func (p *Peer) Close() error {
	p.lock.Lock()
	registered := p.registered
	p.registered = false
	p.events = nil
	p.lock.Unlock()
	if registered {
		p.conductor.Unregister(p)
	}
	return p.pc.Close()
}

// Answer builds a peer for a browser offer. The answer and every local
// candidate are handed to signal as JSON.
func (w *WebRTC) Answer(ctx context.Context, offer webrtc.SessionDescription, signal func([]byte) error) (*Peer, error) {
	if offer.Type != webrtc.SDPTypeOffer {
		return nil, errors.Errorf("expected an offer, got %s", offer.Type)
	}

	pc, err := w.api.NewPeerConnection(w.config)
	if err != nil {
		return nil, errors.Wrap(err, "new peer connection")
	}
	p := &Peer{conductor: w.conductor, pc: pc, signal: signal}
	pc.OnICECandidate(p.onCandidate)
	pc.OnDataChannel(func(dc *webrtc.DataChannel) { p.onDataChannel(ctx, dc) })
	pc.OnICEConnectionStateChange(p.onState)

	fail := func(err error, what string) (*Peer, error) {
		pc.Close()
		return nil, errors.Wrap(err, what)
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return fail(err, "set remote description")
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fail(err, "create answer")
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return fail(err, "set local description")
	}

	p.sendSignal(answer)
	p.flushCandidates()
	return p, nil
}

// SignalHandler carries offers, answers and candidates over a websocket.
// The peer outlives the socket once connected.
func (w *WebRTC) SignalHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		log.WithError(err).Warn("signal upgrade failed")
		return
	}
	defer conn.Close()

	var writeLock sync.Mutex
	signal := func(msg []byte) error {
		writeLock.Lock()
		defer writeLock.Unlock()
		return conn.WriteMessage(websocket.TextMessage, msg)
	}

	var peer *Peer
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.WithError(err).Debug("signal socket closed")
			return
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(msg, &envelope); err != nil {
			log.WithError(err).Warn("unreadable signal")
			continue
		}

		switch {
		case envelope["type"] != nil:
			var sdp webrtc.SessionDescription
			if err = json.Unmarshal(msg, &sdp); err != nil {
				break
			}
			if peer != nil {
				peer.Close()
			}
			peer, err = w.Answer(context.Background(), sdp, signal)

		case envelope["candidate"] != nil:
			if peer == nil {
				err = errors.New("candidate before offer")
				break
			}
			var c webrtc.ICECandidateInit
			if err = json.Unmarshal(msg, &c); err != nil {
				break
			}
			err = peer.AddICECandidate(c)

		default:
			err = errors.New("signal is neither a description nor a candidate")
		}

		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"remote": r.RemoteAddr}).Warn("signal refused")
		}
	}
}
