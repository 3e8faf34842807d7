package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagecheck/models"
)

func failedReport() *models.Report {
	return &models.Report{
		RunID:     "run-1",
		Plan:      models.UploadScreenTitle,
		Engine:    "rod",
		TargetURL: "http://localhost:5000",
		Error:     &models.ErrorDetail{Code: models.ErrCodeTimeout, Message: "marker missing"},
	}
}

func TestDeliver_SignsBody(t *testing.T) {
	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := Deliver(context.Background(), srv.URL, "s3cret", NewEvent(failedReport()))
	require.NoError(t, err)

	assert.Equal(t, Sign("s3cret", gotBody), gotSig)

	var ev Event
	require.NoError(t, json.Unmarshal(gotBody, &ev))
	assert.Equal(t, "verification.failed", ev.Type)
	assert.Equal(t, "run-1", ev.RunID)
	require.NotNil(t, ev.Data)
	assert.Equal(t, models.ErrCodeTimeout, ev.Data.ErrorCode())
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	require.NoError(t, Deliver(context.Background(), srv.URL, "", NewEvent(&models.Report{Success: true})))
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := Deliver(context.Background(), srv.URL, "", NewEvent(failedReport()))
	assert.ErrorContains(t, err, "502")
}

func TestDeliverWithRetry_EventuallySucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	delays := []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	err := DeliverWithRetry(context.Background(), srv.URL, "", NewEvent(failedReport()), delays)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDeliverWithRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := DeliverWithRetry(context.Background(), srv.URL, "", NewEvent(failedReport()), []time.Duration{time.Millisecond})
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDeliverWithRetry_StopsOnContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := DeliverWithRetry(ctx, srv.URL, "", NewEvent(failedReport()), []time.Duration{time.Hour})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
