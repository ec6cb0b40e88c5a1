// Package websocket broadcasts channel events to websocket clients.
package websocket

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/fport.go/pkg/framework"
	"github.com/robotalks/fport.go/pkg/telemetry/msgs"
)

// DefaultPath is where the Server is usually mounted.
const DefaultPath = "/channels"

// Server sends every broadcast event as a JSON object to all
// connected clients.
type Server struct {
	lock    sync.RWMutex
	clients map[*websocket.Conn]chan interface{}
}

// NewServer creates a Server.
func NewServer() *Server {
	return &Server{clients: make(map[*websocket.Conn]chan interface{})}
}

// Handler returns the http.Handler accepting websocket clients.
func (s *Server) Handler() http.Handler {
	return websocket.Server{Handler: s.serve}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.clients)
}

// Broadcast queues msg to all clients. Slow clients drop messages.
func (s *Server) Broadcast(msg interface{}) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for conn, ch := range s.clients {
		select {
		case ch <- msg:
		default:
			glog.V(3).Infof("websocket %s: message dropped", conn.Request().RemoteAddr)
		}
	}
}

// Control implements framework.Controller.
// Broadcasts the latest channels event of the iteration.
func (s *Server) Control(cc fx.ControlContext) error {
	var latest *msgs.ChannelsEvent
	for _, m := range cc.Messages() {
		if evt, ok := m.(*msgs.ChannelsEvent); ok {
			latest = evt
		}
	}
	if latest != nil {
		s.Broadcast(latest)
	}
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddController(s)
}

func (s *Server) serve(conn *websocket.Conn) {
	ch := make(chan interface{}, 8)
	s.lock.Lock()
	s.clients[conn] = ch
	s.lock.Unlock()
	remote := conn.Request().RemoteAddr
	glog.V(1).Infof("websocket %s connected", remote)

	defer func() {
		s.lock.Lock()
		delete(s.clients, conn)
		s.lock.Unlock()
		conn.Close()
		glog.V(1).Infof("websocket %s disconnected", remote)
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		var discard []byte
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case msg := <-ch:
			if err := websocket.JSON.Send(conn, msg); err != nil {
				glog.V(1).Infof("websocket %s send error: %v", remote, err)
				return
			}
		}
	}
}
