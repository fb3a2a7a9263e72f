package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	logging "github.com/op/go-logging"

	"github.com/viert/flatfs/config"
	"github.com/viert/flatfs/storage"
)

var (
	log = logging.MustGetLogger("server")
)

// maxLineLength fits a WRITE of the largest size an inode can record.
// Longer lines drop the connection.
const maxLineLength = storage.MaxFileSize + 64

// Server is the line protocol TCP server. Every connection is served
// by its own goroutine, all of them sharing one storage engine.
type Server struct {
	bind    string
	storage *storage.Storage
	maxLine int

	listener   net.Listener
	conns      map[uint64]net.Conn
	connsMu    sync.Mutex
	nextConnID uint64
	quit       chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates and configures a new Server instance
// based on a given underlying storage
func NewServer(st *storage.Storage, cfg *config.ServerCfg) *Server {
	return &Server{
		bind:    cfg.Bind,
		storage: st,
		maxLine: maxLineLength,
		conns:   make(map[uint64]net.Conn),
		quit:    make(chan struct{}),
	}
}

// Start binds the listener and runs the accept loop in background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", s.bind, err)
	}
	s.listener = ln
	log.Infof("server is listening on %s", ln.Addr())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the address the server is listening on
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Errorf("accept error: %s", err)
			continue
		}

		id := atomic.AddUint64(&s.nextConnID, 1)
		s.connsMu.Lock()
		select {
		case <-s.quit:
			// Stop has already closed the registered connections
			s.connsMu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conns[id] = conn
		s.connsMu.Unlock()
		log.Infof("client %d connected from %s", id, conn.RemoteAddr())

		s.wg.Add(1)
		go s.serve(id, conn)
	}
}

func (s *Server) serve(id uint64, conn net.Conn) {
	defer func() {
		conn.Close()
		s.connsMu.Lock()
		delete(s.conns, id)
		s.connsMu.Unlock()
		s.wg.Done()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), s.maxLine)
	w := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Text()
		log.Debugf("client %d: %.64q", id, line)

		resp, quit := s.handle(line)
		if _, err := w.WriteString(resp + "\n"); err != nil {
			log.Infof("client %d: error writing response: %s", id, err)
			return
		}
		if err := w.Flush(); err != nil {
			log.Infof("client %d: error writing response: %s", id, err)
			return
		}
		if quit {
			log.Infof("client %d disconnected", id)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-s.quit:
		default:
			log.Warningf("client %d: error reading request: %s", id, err)
		}
		return
	}
	log.Infof("client %d closed the connection", id)
}

// Stop closes the listener and every client connection, then waits
// for the connection goroutines to finish
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	log.Info("server stopped")
}
