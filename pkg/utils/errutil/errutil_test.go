package errutil_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/venquis/contractchat/pkg/utils/errutil"
)

func TestHandleHTTPHidesErrorDetail(t *testing.T) {
	w := httptest.NewRecorder()
	err := goerr.New("upstream said: secret internal detail", goerr.V("status", 502))

	errutil.HandleHTTP(context.Background(), w, err, http.StatusInternalServerError, "Analysis failed")

	gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
	gt.Value(t, w.Header().Get("Content-Type")).Equal("application/json")

	var body map[string]string
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body)).Required()
	gt.Value(t, body["error"]).Equal("Analysis failed")
}

func TestHandleHTTPDefaultsToStatusText(t *testing.T) {
	w := httptest.NewRecorder()
	errutil.HandleHTTP(context.Background(), w, goerr.New("nope"), http.StatusNotFound, "")

	var body map[string]string
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body)).Required()
	gt.Value(t, body["error"]).Equal("Not Found")
}

func TestHandleReturnsSameError(t *testing.T) {
	err := goerr.New("boom")
	gt.Value(t, errutil.Handle(context.Background(), err, "failed")).Equal(err)
	gt.NoError(t, errutil.Handle(context.Background(), nil, "noop"))
}
