package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"voxelplanet/rendering"
	"voxelplanet/streaming"
)

const (
	sendQueue     = 1024
	commandQueue  = 256
	writeDeadline = 5 * time.Second
	readDeadline  = 60 * time.Second
)

// Options configures a Hub.
type Options struct {
	MaxClients int
	Compress   bool
	Logger     *log.Logger
	Registerer prometheus.Registerer
}

type outbound struct {
	kind int
	data []byte
}

type client struct {
	id   uuid.UUID
	out  chan outbound
	done chan struct{}
	once sync.Once

	// sent is owned by Publish.
	sent map[streaming.AnyKey]*rendering.Mesh
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// enqueue reports false when the viewer is too slow to keep up.
func (c *client) enqueue(o outbound) bool {
	select {
	case c.out <- o:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Hub streams the resident mesh set to websocket viewers and collects their
// commands. Publish and Commands are used by the frame loop; Handler serves
// connections concurrently.
type Hub struct {
	opts     Options
	log      *log.Logger
	codec    *Codec
	upgrader websocket.Upgrader
	commands chan Command

	clientsGauge prometheus.Gauge
	bytesSent    *prometheus.CounterVec

	mu      sync.Mutex
	clients map[uuid.UUID]*client
	// reserved counts connections admitted but not yet registered.
	reserved   int
	resolution uint32
	seed       uint32
}

// NewHub creates a hub.
func NewHub(opts Options) (*Hub, error) {
	if opts.MaxClients <= 0 {
		opts.MaxClients = 16
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	codec, err := NewCodec(opts.Compress)
	if err != nil {
		return nil, err
	}

	h := &Hub{
		opts:  opts,
		log:   logger,
		codec: codec,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		commands: make(chan Command, commandQueue),
		clients:  make(map[uuid.UUID]*client),
		clientsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "planet",
			Subsystem: "server",
			Name:      "clients",
			Help:      "Connected viewers.",
		}),
		bytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planet",
			Subsystem: "server",
			Name:      "sent_bytes_total",
			Help:      "Bytes queued for viewers, by message kind.",
		}, []string{"kind"}),
	}
	if opts.Registerer != nil {
		opts.Registerer.MustRegister(h.clientsGauge, h.bytesSent)
	}
	return h, nil
}

// Commands delivers decoded viewer messages.
func (h *Hub) Commands() <-chan Command { return h.commands }

// SetWorld records what new viewers are told in their welcome.
func (h *Hub) SetWorld(resolution, seed uint32) {
	h.mu.Lock()
	h.resolution, h.seed = resolution, seed
	h.mu.Unlock()
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler upgrades viewer connections.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !h.reserve() {
			http.Error(rw, "too many viewers", http.StatusServiceUnavailable)
			return
		}
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			h.release()
			h.log.Printf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		c := h.register()
		defer h.unregister(c)

		go h.writeLoop(conn, c)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			cmd, err := decodeCommand(c.id, msg)
			if err != nil {
				h.log.Printf("client %s: %v", c.id, err)
				continue
			}
			select {
			case h.commands <- cmd:
			default:
				h.log.Printf("client %s: command queue full, dropping %s", c.id, cmd.Type)
			}
		}
	}
}

// reserve claims a viewer slot before the upgrade so concurrent
// handshakes cannot exceed MaxClients.
func (h *Hub) reserve() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients)+h.reserved >= h.opts.MaxClients {
		return false
	}
	h.reserved++
	return true
}

func (h *Hub) release() {
	h.mu.Lock()
	h.reserved--
	h.mu.Unlock()
}

// register turns a reserved slot into a connected client.
func (h *Hub) register() *client {
	c := &client{
		id:   uuid.New(),
		out:  make(chan outbound, sendQueue),
		done: make(chan struct{}),
		sent: make(map[streaming.AnyKey]*rendering.Mesh),
	}

	h.mu.Lock()
	h.reserved--
	h.clients[c.id] = c
	welcome := Welcome{Type: TypeWelcome, ClientID: c.id.String(), Resolution: h.resolution, Seed: h.seed}
	h.mu.Unlock()

	h.clientsGauge.Inc()
	h.sendJSON(c, welcome)
	h.log.Printf("client %s connected", c.id)
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		h.clientsGauge.Dec()
	}
	h.mu.Unlock()
	c.close()
	h.log.Printf("client %s disconnected", c.id)
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) {
	for {
		select {
		case <-c.done:
			_ = conn.Close()
			return
		case o := <-c.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(o.kind, o.data); err != nil {
				c.close()
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *Hub) sendJSON(c *client, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Printf("encode %T: %v", v, err)
		return false
	}
	if !c.enqueue(outbound{kind: websocket.TextMessage, data: b}) {
		return false
	}
	h.bytesSent.WithLabelValues("json").Add(float64(len(b)))
	return true
}

// Publish brings every viewer up to date with the visible set: meshes a
// viewer has not seen (or has an older version of) are sent as binary
// frames, meshes no longer visible are evicted, and state follows with the
// opacity of every mesh still fading. Viewers whose queue is full are
// disconnected.
func (h *Hub) Publish(visible []streaming.Resident, state State) {
	state.Type = TypeState
	state.Fading = state.Fading[:0]
	frames := make(map[streaming.AnyKey][]byte)
	live := make(map[streaming.AnyKey]struct{}, len(visible))
	for _, r := range visible {
		live[r.Key] = struct{}{}
		if r.Opacity < 1 {
			state.Fading = append(state.Fading, KeyOpacity{Key: wireKey(r.Key), Opacity: r.Opacity})
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		if !h.publishTo(c, visible, live, frames, state) {
			h.log.Printf("client %s too slow, dropping", id)
			delete(h.clients, id)
			h.clientsGauge.Dec()
			c.close()
		}
	}
}

func (h *Hub) publishTo(c *client, visible []streaming.Resident, live map[streaming.AnyKey]struct{},
	frames map[streaming.AnyKey][]byte, state State) bool {
	for _, r := range visible {
		if c.sent[r.Key] == r.Mesh {
			continue
		}
		data, ok := frames[r.Key]
		if !ok {
			data = h.codec.Pack(Frame{Key: r.Key, Mesh: r.Mesh})
			frames[r.Key] = data
		}
		if !c.enqueue(outbound{kind: websocket.BinaryMessage, data: data}) {
			return false
		}
		h.bytesSent.WithLabelValues("mesh").Add(float64(len(data)))
		c.sent[r.Key] = r.Mesh
	}

	var gone []WireKey
	for k := range c.sent {
		if _, ok := live[k]; !ok {
			gone = append(gone, wireKey(k))
			delete(c.sent, k)
		}
	}
	if len(gone) > 0 && !h.sendJSON(c, Evict{Type: TypeEvict, Keys: gone}) {
		return false
	}
	return h.sendJSON(c, state)
}

// Reset tells every viewer to drop all meshes, after a resize.
func (h *Hub) Reset(resolution, seed uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resolution, h.seed = resolution, seed
	for _, c := range h.clients {
		clear(c.sent)
		h.sendJSON(c, Welcome{Type: TypeReset, ClientID: c.id.String(), Resolution: resolution, Seed: seed})
	}
}

// Close disconnects every viewer and releases the codec.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
		h.clientsGauge.Dec()
	}
	h.mu.Unlock()
	h.codec.Close()
}
