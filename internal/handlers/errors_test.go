package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.NewNop(), 418, "teapot", "Teapot", "", nil)

	assert.Equal(t, 418, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var body errorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	assert.Equal(t, errorResponse{Error: "Teapot", Code: "teapot"}, body)
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.New(core), 500, CodeInternal, ErrInternalServerError, "", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, ErrInternalServerError, entries[0].Message)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}

func TestRespondWithErrorSkipsLogWithoutError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	respondWithError(httptest.NewRecorder(), zap.New(core), 400, CodeInvalidDate, ErrInvalidDate, "", nil)

	assert.Zero(t, logs.Len())
}
