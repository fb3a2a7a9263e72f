package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// HTTPError represents an error-compatible struct to hold http status code
// along with the error message
type HTTPError struct {
	Code    int
	Message string
}

func (he HTTPError) Error() string {
	return he.Message
}

// DataHandler is a common API handler receiving http request
// and returning whatever JSON-able data
type DataHandler func(*http.Request) (interface{}, error)

type httpErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPError(code int, format string, args ...interface{}) HTTPError {
	return HTTPError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// StatusCode returns the code carried by an HTTPError anywhere in the
// chain of e, 500 otherwise
func StatusCode(e error) int {
	var he HTTPError
	if errors.As(e, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// WriteJSONError is a helper to return API errors to a user in JSON format
func WriteJSONError(w http.ResponseWriter, e error) error {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(httpErrorResponse{Error: e.Error()})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, err = w.Write([]byte(`{"error": "internal server error"}`))
		return err
	}
	w.WriteHeader(StatusCode(e))
	_, err = w.Write(data)
	return err
}

// JSONResponse converts DataHandler to a http.HandlerFunc
func JSONResponse(handler DataHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		responseData, err := handler(r)
		if err != nil {
			WriteJSONError(w, err)
			return
		}
		data, err := json.Marshal(responseData)
		if err != nil {
			WriteJSONError(w, NewHTTPError(http.StatusInternalServerError, "marshalling error: %s", err))
			return
		}
		w.Write(data)
	}
}
