package web

import (
	"errors"
	"net/http"

	"github.com/viert/flatfs/common"
	"github.com/viert/flatfs/storage"
)

var statusCodes = []struct {
	err  error
	code int
}{
	{storage.ErrNotFound, http.StatusNotFound},
	{storage.ErrDuplicateName, http.StatusConflict},
	{storage.ErrInvalidName, http.StatusBadRequest},
	{storage.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{storage.ErrTableFull, http.StatusInsufficientStorage},
	{storage.ErrAllocationExhausted, http.StatusInsufficientStorage},
	{storage.ErrClosed, http.StatusServiceUnavailable},
}

// storageError converts an engine error into an HTTPError carrying
// a matching status code
func storageError(err error) error {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return common.HTTPError{Code: sc.code, Message: err.Error()}
		}
	}
	log.Errorf("storage error: %s", err)
	return common.HTTPError{Code: http.StatusInternalServerError, Message: err.Error()}
}
