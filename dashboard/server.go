// Package dashboard serves a single-page live view of SCP/outer-search
// progress over a websocket, reading from a telemetry.Hub, plus a
// /status liveness endpoint. Routing goes through gorilla/mux rather
// than bare http.HandleFunc, since a dashboard that eventually grows a
// /points/{id} per-point view needs path variables the standard mux
// doesn't give you. Each connected client is synchronized by its own
// errgroup of read/ping/publish goroutines, the same three-way split
// the teacher's fastview client uses to publish training updates.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"ipomdp/telemetry"
)

const (
	writeWait      = 1 * time.Second
	pubResolution  = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
	closeGraceWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errPongDeadlineExceeded = errors.New("dashboard: client disconnect, pong deadline exceeded")

// Server serves index.html and a /ws feed of telemetry.Event updates to
// any number of browser clients, fanned out from a single hub via
// channerics.Broadcast.
type Server struct {
	addr      string
	hub       *telemetry.Hub
	router    *mux.Router
	startedAt time.Time
	clients   int32
}

// NewServer builds a dashboard bound to hub. Every websocket client that
// connects gets its own subscription, so opening the page in two tabs
// shows the same progress in both.
func NewServer(addr string, hub *telemetry.Hub) *Server {
	s := &Server{addr: addr, hub: hub, router: mux.NewRouter(), startedAt: time.Now()}
	s.router.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.serveWebsocket).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.serveStatus).Methods(http.MethodGet)
	return s
}

// statusPayload is the JSON body /status reports: enough for an
// operator's liveness probe to confirm the dashboard is up and see how
// many browser tabs are currently watching.
type statusPayload struct {
	Uptime  string `json:"uptime"`
	Clients int32  `json:"clients"`
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := statusPayload{
		Uptime:  time.Since(s.startedAt).String(),
		Clients: atomic.LoadInt32(&s.clients),
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Serve blocks, serving the dashboard until ctx is done or an
// unrecoverable listen error occurs.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("dashboard: %w", err)
			return
		}
		errc <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeGraceWait)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := indexTemplate.Execute(w, nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// serveWebsocket upgrades the connection and runs a client bound to its
// own subscription channel until Sync returns.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("dashboard: upgrade failed:", err)
		return
	}

	cli := &client{
		updates: s.hub.Subscribe(1)[0],
		ws:      ws,
		rootCtx: r.Context(),
	}
	atomic.AddInt32(&s.clients, 1)
	defer atomic.AddInt32(&s.clients, -1)
	if err := cli.Sync(); err != nil {
		log.Println("dashboard: client disconnected:", err)
	}
}

// client publishes telemetry.Event updates to a single websocket
// connection, via three goroutines under a shared errgroup: readMessages
// drains client frames so gorilla/websocket's ping/pong handlers fire,
// pingPong sends periodic keepalives and watches for a missed pong,
// and publish forwards hub events at a bounded rate.
type client struct {
	updates <-chan telemetry.Event
	ws      *websocket.Conn
	rootCtx context.Context
}

// Sync blocks until the client disconnects or a goroutine returns an
// error, then tears down the connection.
func (cli *client) Sync() error {
	defer cli.close()

	group, groupCtx := errgroup.WithContext(cli.rootCtx)
	group.Go(func() error { return cli.readMessages(groupCtx) })
	group.Go(func() error { return cli.pingPong(groupCtx) })
	group.Go(func() error { return cli.publish(groupCtx) })
	return group.Wait()
}

func (cli *client) readMessages(ctx context.Context) error {
	for {
		if _, _, err := cli.ws.ReadMessage(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (cli *client) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.ws.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return errPongDeadlineExceeded
			}
			if err := cli.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *client) publish(ctx context.Context) error {
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-cli.updates:
			if !ok {
				return nil
			}
			if time.Since(last) < pubResolution {
				continue
			}
			last = time.Now()
			if err := cli.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := cli.ws.WriteJSON(e); err != nil {
				return err
			}
		}
	}
}

func (cli *client) close() {
	_ = cli.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = cli.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	cli.ws.Close()
}

var indexTemplate = template.Must(template.New("index.html").Parse(`<!DOCTYPE html>
<html>
<head><title>ipomdp search progress</title></head>
<body>
<h1>SCP / outer-search progress</h1>
<table id="points"></table>
<script>
const rows = {};
const table = document.getElementById("points");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (msg) => {
  const e = JSON.parse(msg.data);
  let row = rows[e.PointID];
  if (!row) {
    row = table.insertRow();
    row.insertCell(); row.insertCell(); row.insertCell(); row.insertCell();
    rows[e.PointID] = row;
  }
  row.cells[0].textContent = "point " + e.PointID;
  row.cells[1].textContent = e.Phase + " #" + e.Iteration;
  row.cells[2].textContent = "trust=" + e.TrustRegion.toFixed(4);
  row.cells[3].textContent = "obj=" + e.Objective.toFixed(4);
};
</script>
</body>
</html>`))
