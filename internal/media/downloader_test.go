package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
)

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer server.Close()

	d := NewDownloader(server.Client(), 2)
	dest := filepath.Join(t.TempDir(), "nested", "source.mp4")

	n, err := d.Download(context.Background(), server.URL+"/clip.mp4", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len("video-bytes")), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestDownloadNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDownloader(server.Client(), 2)
	dest := filepath.Join(t.TempDir(), "source.mp4")

	_, err := d.Download(context.Background(), server.URL, dest)
	require.Error(t, err)

	var integration *failure.IntegrationFailure
	require.True(t, errors.As(err, &integration))
	assert.Equal(t, http.StatusNotFound, integration.StatusCode)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadConcurrencyIsBounded(t *testing.T) {
	var inFlight, maxInFlight int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&inFlight, 1)
		for {
			seen := atomic.LoadInt32(&maxInFlight)
			if current <= seen || atomic.CompareAndSwapInt32(&maxInFlight, seen, current) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := NewDownloader(server.Client(), 2)
	dir := t.TempDir()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := d.Download(context.Background(), server.URL, filepath.Join(dir, fmt.Sprintf("%d.mp4", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(1))
}

func TestDownloadCancelledWhileWaiting(t *testing.T) {
	d := NewDownloader(nil, 1)
	require.True(t, d.sem.TryAcquire(1))
	defer d.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Download(ctx, "http://example.invalid", filepath.Join(t.TempDir(), "x.mp4"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
