package comms

import (
	"bufio"
	"context"
	"github.com/pkg/errors"
	"go.bug.st/serial"
	"io"
)

// Longest line accepted from a serial client.
const MaxLine = 4096

// Opens a serial device as 8N1.
func OpenSerial(path string, baud int) (serial.Port, error) {
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial %s", path)
	}
	return port, nil
}

// Events are dropped, not waited for, once this many lines are pending.
const lineBuffer = 32

var ErrClientClosed = errors.New("client closed")

// lineClient queues lines for a writer goroutine so the loop never waits on
// the port.
type lineClient struct {
	w      io.Writer
	name   string
	send   chan []byte
	done   chan struct{}
	failed chan struct{}
	err    error
}

func newLineClient(w io.Writer, name string) *lineClient {
	return &lineClient{
		w:      w,
		name:   name,
		send:   make(chan []byte, lineBuffer),
		done:   make(chan struct{}),
		failed: make(chan struct{}),
	}
}

func (l *lineClient) Send(msg []byte) error {
	select {
	case <-l.failed:
		return l.err
	case <-l.done:
		return ErrClientClosed
	default:
	}
	select {
	case l.send <- msg:
		return nil
	default:
		return ErrSlowClient
	}
}

// reply waits for room, replies are never dropped.
func (l *lineClient) reply(ctx context.Context, msg []byte) error {
	select {
	case l.send <- msg:
		return nil
	case <-l.failed:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lineClient) writer() {
	for {
		select {
		case msg := <-l.send:
			line := make([]byte, len(msg)+1)
			copy(line, msg)
			line[len(msg)] = '\n'
			if _, err := l.w.Write(line); err != nil {
				l.err = err
				close(l.failed)
				return
			}
		case <-l.done:
			return
		}
	}
}

func (l *lineClient) String() string {
	return l.name
}

// ServeLines reads newline framed commands from rw and writes a reply line for
// each until rw fails or the context ends. Events are written in between.
func (c *Conductor) ServeLines(ctx context.Context, name string, rw io.ReadWriter) error {
	client := newLineClient(rw, name)
	go client.writer()
	defer close(client.done)
	c.Register(client)
	defer c.Unregister(client)

	scanner := bufio.NewScanner(rw)
	scanner.Buffer(make([]byte, 256), MaxLine)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 || (len(line) == 1 && line[0] == '\r') {
			continue
		}
		if err := client.reply(ctx, c.Handle(ctx, line)); err != nil {
			return errors.Wrap(err, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, name)
	}
	return io.EOF
}
