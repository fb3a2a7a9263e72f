package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	he := NewHTTPError(http.StatusNotFound, "file %s not found", "a")
	require.Equal(t, "file a not found", he.Error())
	require.Equal(t, http.StatusNotFound, StatusCode(he))
	require.Equal(t, http.StatusNotFound, StatusCode(fmt.Errorf("wrapped: %w", he)))
	require.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("plain")))
}

func TestJSONResponse(t *testing.T) {
	ok := JSONResponse(func(r *http.Request) (interface{}, error) {
		return map[string]int{"answer": 42}, nil
	})
	rec := httptest.NewRecorder()
	ok(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"answer": 42}`, rec.Body.String())

	failing := JSONResponse(func(r *http.Request) (interface{}, error) {
		return nil, NewHTTPError(http.StatusConflict, "already exists")
	})
	rec = httptest.NewRecorder()
	failing(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error": "already exists"}`, rec.Body.String())

	unmarshallable := JSONResponse(func(r *http.Request) (interface{}, error) {
		return make(chan int), nil
	})
	rec = httptest.NewRecorder()
	unmarshallable(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
