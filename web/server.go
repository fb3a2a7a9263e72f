package web

import (
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/op/go-logging"

	"github.com/viert/flatfs/common"
	"github.com/viert/flatfs/storage"
)

// Server represents the flatfs http admin server
type Server struct {
	bind    string
	storage *storage.Storage
}

var (
	log = logging.MustGetLogger("web")
)

// NewServer creates and configures a new Server instance
// based on a given underlying storage
func NewServer(st *storage.Storage, bind string) *Server {
	return &Server{
		bind:    bind,
		storage: st,
	}
}

// Router returns the API handler
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/info", common.JSONResponse(s.appInfo)).Methods("GET")
	r.HandleFunc("/api/v1/files", common.JSONResponse(s.listFiles)).Methods("GET")
	r.HandleFunc("/api/v1/files/{name}", common.JSONResponse(s.readFile)).Methods("GET")
	r.HandleFunc("/api/v1/files/{name}", common.JSONResponse(s.createFile)).Methods("POST")
	r.HandleFunc("/api/v1/files/{name}", common.JSONResponse(s.writeFile)).Methods("PUT")
	r.HandleFunc("/api/v1/files/{name}", common.JSONResponse(s.deleteFile)).Methods("DELETE")
	return r
}

// Start creates and configures a http server with all necessary handlers,
// then starts Serve in background and returns the server
func (s *Server) Start() (*http.Server, error) {
	log.Info("Creating HTTP router")
	ln, err := net.Listen("tcp", s.bind)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: s.Router(),
	}

	go func() {
		log.Infof("http server is starting at %s", srv.Addr)
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server error: %s", err)
		}
	}()

	return srv, nil
}
