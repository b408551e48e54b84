package armband

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// maxLineSize bounds a single feed line.
const maxLineSize = 64 * 1024

// lineFeed reads newline-delimited messages from a byte stream.
type lineFeed struct {
	scanner *bufio.Scanner
	closer  io.Closer
	delay   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	started  bool
}

func newLineFeed(rc io.ReadCloser, delay time.Duration) *lineFeed {
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &lineFeed{
		scanner: scanner,
		closer:  rc,
		delay:   delay,
		stop:    make(chan struct{}),
	}
}

func (f *lineFeed) Next() ([]byte, error) {
	for {
		if f.delay > 0 && f.started {
			select {
			case <-time.After(f.delay):
			case <-f.stop:
				return nil, io.EOF
			}
		}
		f.started = true

		if !f.scanner.Scan() {
			if err := f.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		line := f.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Scanner reuses its buffer
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
}

func (f *lineFeed) Close() error {
	f.stopOnce.Do(func() { close(f.stop) })
	return f.closer.Close()
}

// SerialDialer reads the feed from a serial port, e.g. a USB dongle or a
// microcontroller forwarding classifier output.
type SerialDialer struct {
	Port string // empty selects the first detected port
	Baud int
}

// Dial opens the serial port.
func (d SerialDialer) Dial(ctx context.Context) (Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	port := d.Port
	if port == "" {
		ports, err := ListSerialPorts()
		if err != nil {
			return nil, err
		}
		if len(ports) == 0 {
			return nil, errors.New("no serial ports found")
		}
		port = ports[0]
	}

	p, err := serial.Open(port, &serial.Mode{BaudRate: d.Baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	return newLineFeed(p, 0), nil
}

func (d SerialDialer) String() string {
	if d.Port == "" {
		return "serial:auto"
	}
	return "serial:" + d.Port
}

// ListSerialPorts returns the serial ports present on this machine.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// FileDialer replays a recorded feed from a file.
type FileDialer struct {
	Path string
	Rate time.Duration // delay between events, 0 replays as fast as Poll drains
}

// Dial opens the recording.
func (d FileDialer) Dial(ctx context.Context) (Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, err
	}
	return newLineFeed(f, d.Rate), nil
}

func (d FileDialer) String() string {
	return "file:" + d.Path
}

// WebSocketDialer reads the feed from a websocket, one event per message.
// This is the usual transport when the classifier runs as a separate process.
type WebSocketDialer struct {
	URL    string
	Header http.Header
}

// Dial connects to the websocket.
func (d WebSocketDialer) Dial(ctx context.Context) (Feed, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	return &wsFeed{conn: conn}, nil
}

func (d WebSocketDialer) String() string {
	return "websocket:" + d.URL
}

type wsFeed struct {
	conn *websocket.Conn
}

func (f *wsFeed) Next() ([]byte, error) {
	for {
		msgType, data, err := f.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

func (f *wsFeed) Close() error {
	return f.conn.Close()
}
