package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/viert/flatfs/common"
	"github.com/viert/flatfs/storage"
)

type infoResponse struct {
	AppName string `json:"app_name"`
	storage.Stats
}

// IncomingData is a json-marked-up structure for incoming data
type IncomingData struct {
	Data *string `json:"data"`
}

type fileListResponse struct {
	Files []storage.FileInfo `json:"files"`
}

// FileResponse is the content of a single file
type FileResponse struct {
	Name string `json:"name"`
	Data string `json:"data"`
	Size int    `json:"size"`
}

type statusResponse struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

func (s *Server) appInfo(r *http.Request) (interface{}, error) {
	stats, err := s.storage.Stats()
	if err != nil {
		return nil, storageError(err)
	}
	return &infoResponse{AppName: "flatfs", Stats: stats}, nil
}

func (s *Server) listFiles(r *http.Request) (interface{}, error) {
	stats, err := s.storage.Stats()
	if err != nil {
		return nil, storageError(err)
	}
	return &fileListResponse{Files: stats.Files}, nil
}

func (s *Server) readFile(r *http.Request) (interface{}, error) {
	name := mux.Vars(r)["name"]
	data, err := s.storage.Read(name)
	if err != nil {
		return nil, storageError(err)
	}
	return &FileResponse{Name: name, Data: string(data), Size: len(data)}, nil
}

func (s *Server) createFile(r *http.Request) (interface{}, error) {
	name := mux.Vars(r)["name"]
	if err := s.storage.Create(name); err != nil {
		return nil, storageError(err)
	}
	log.Debugf("created %q over http", name)
	return &statusResponse{Status: "created", Name: name}, nil
}

func getIncomingData(r *http.Request) (*IncomingData, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" {
		return nil, common.NewHTTPError(http.StatusBadRequest, "this handler accepts JSON data only")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 4*storage.MaxFileSize))
	if err != nil {
		return nil, common.NewHTTPError(http.StatusInternalServerError, "error reading request body: %s", err)
	}

	var input IncomingData
	err = json.Unmarshal(body, &input)
	if err != nil {
		return nil, common.NewHTTPError(http.StatusBadRequest, "error parsing json data: %s", err)
	}

	if input.Data == nil {
		return nil, common.NewHTTPError(http.StatusBadRequest, "data field is missing")
	}
	return &input, nil
}

func (s *Server) writeFile(r *http.Request) (interface{}, error) {
	name := mux.Vars(r)["name"]
	input, err := getIncomingData(r)
	if err != nil {
		return nil, err
	}
	if err := s.storage.Write(name, []byte(*input.Data)); err != nil {
		return nil, storageError(err)
	}
	return &statusResponse{Status: "written", Name: name}, nil
}

func (s *Server) deleteFile(r *http.Request) (interface{}, error) {
	name := mux.Vars(r)["name"]
	if err := s.storage.Delete(name); err != nil {
		return nil, storageError(err)
	}
	return &statusResponse{Status: "deleted", Name: name}, nil
}
