package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

func TestNotifySignsPayload(t *testing.T) {
	var (
		mu        sync.Mutex
		body      []byte
		signature string
		event     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body, _ = io.ReadAll(r.Body)
		signature = r.Header.Get(SignatureHeader)
		event = r.Header.Get("X-Webhook-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier([]string{server.URL}, "s3cret", nil, nil)
	status := models.ProjectStatus{ID: "p-1", Status: models.StatusTranslated, OverlayApproved: true, PostApproved: true}

	err := n.Notify(context.Background(), models.WebhookEventStageCompleted, status)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, models.WebhookEventStageCompleted, event)
	assert.True(t, Verify(body, "s3cret", signature))

	var decoded models.WebhookEvent
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "p-1", decoded.Data.ID)
	assert.Equal(t, models.StatusTranslated, decoded.Data.Status)
}

func TestNotifyReportsFailedTargets(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer bad.Close()

	n := NewNotifier([]string{ok.URL, bad.URL}, "", nil, nil)
	err := n.Notify(context.Background(), models.WebhookEventStageFailed, models.ProjectStatus{ID: "p-2"})
	require.Error(t, err)

	var integration *failure.IntegrationFailure
	require.True(t, errors.As(err, &integration))
	assert.Equal(t, http.StatusBadGateway, integration.StatusCode)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestNotifyWithoutTargets(t *testing.T) {
	n := NewNotifier(nil, "", nil, nil)
	assert.NoError(t, n.Notify(context.Background(), models.WebhookEventProjectCreated, models.ProjectStatus{}))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	sig := Sign([]byte(`{"event":"stage.completed"}`), "key")
	assert.True(t, Verify([]byte(`{"event":"stage.completed"}`), "key", sig))
	assert.False(t, Verify([]byte(`{"event":"stage.failed"}`), "key", sig))
	assert.False(t, Verify([]byte(`{"event":"stage.completed"}`), "other", sig))
}
