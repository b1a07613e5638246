package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/recup/internal/app/recordings"
	"github.com/slok/recup/internal/app/settings"
	"github.com/slok/recup/internal/app/uploads"
	"github.com/slok/recup/internal/broadcast"
	"github.com/slok/recup/internal/model"
	"github.com/slok/recup/internal/registry"
	"github.com/slok/recup/internal/server"
	"github.com/slok/recup/internal/storage/disk"
	"github.com/slok/recup/internal/storage/jsonfile"
	"github.com/slok/recup/internal/upload"
)

// testEnv wires the whole stack against a temp recordings directory and a
// fake remote upload endpoint.
type testEnv struct {
	api           *httptest.Server
	recordingsDir string
}

func newTestEnv(t *testing.T, remote http.Handler) *testEnv {
	t.Helper()

	dir := t.TempDir()
	recordingsDir := filepath.Join(dir, "recordings")
	require.NoError(t, os.MkdirAll(recordingsDir, 0755))

	var remoteURL string
	if remote != nil {
		remoteSrv := httptest.NewServer(remote)
		t.Cleanup(remoteSrv.Close)
		remoteURL = remoteSrv.URL + "/upload"
	}

	settingsRepo, err := jsonfile.NewSettingsRepository(jsonfile.SettingsRepositoryConfig{
		Path: filepath.Join(dir, "settings.json"),
	})
	require.NoError(t, err)
	if remoteURL != "" {
		require.NoError(t, settingsRepo.SaveSettings(context.Background(), model.Settings{UploadURL: remoteURL}))
	}

	recordingRepo, err := disk.NewRecordingRepository(disk.RecordingRepositoryConfig{Dir: recordingsDir})
	require.NoError(t, err)

	reg, err := registry.New(registry.Config{})
	require.NoError(t, err)
	bc, err := broadcast.New(broadcast.Config{})
	require.NoError(t, err)

	uploader, err := upload.NewClient(upload.ClientConfig{
		ChunkSize:  16 * 1024,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	})
	require.NoError(t, err)

	uploadsSvc, err := uploads.NewService(uploads.ServiceConfig{
		Registry:      reg,
		Broadcaster:   bc,
		Uploader:      uploader,
		SettingsRepo:  settingsRepo,
		RecordingRepo: recordingRepo,
	})
	require.NoError(t, err)

	recordingsSvc, err := recordings.NewService(recordings.ServiceConfig{
		RecordingRepo: recordingRepo,
		Registry:      reg,
	})
	require.NoError(t, err)

	settingsSvc, err := settings.NewService(settings.ServiceConfig{SettingsRepo: settingsRepo})
	require.NoError(t, err)

	srv, err := server.New(server.Config{
		Addr:       "127.0.0.1:0",
		Uploads:    uploadsSvc,
		Recordings: recordingsSvc,
		Settings:   settingsSvc,
		Heartbeat:  20 * time.Millisecond,
	})
	require.NoError(t, err)

	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)

	return &testEnv{api: api, recordingsDir: recordingsDir}
}

func (e *testEnv) writeRecording(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(e.recordingsDir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(e.api.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (e *testEnv) getJSON(t *testing.T, path string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(e.api.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func (e *testEnv) startUpload(t *testing.T, path string) string {
	t.Helper()
	resp, body := e.postJSON(t, "/upload-recording", map[string]string{"file_path": path})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	require.Equal(t, "started", body["status"])
	id, _ := body["upload_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func (e *testEnv) waitStatus(t *testing.T, id string, status string) map[string]interface{} {
	t.Helper()
	var last map[string]interface{}
	require.Eventually(t, func() bool {
		var snap map[string]interface{}
		resp := e.getJSON(t, "/upload-progress/"+id, &snap)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		last = snap
		return snap["status"] == status
	}, 5*time.Second, 10*time.Millisecond, "last snapshot: %v", last)
	return last
}

// acceptingRemote consumes the multipart body and returns 200 with an empty
// JSON object.
func acceptingRemote() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "stored"}`))
	})
}

// slowRemote reads the body at a crawl so uploads stay in flight.
func slowRemote() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		for {
			if _, err := r.Body.Read(buf); err != nil {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{}`))
	})
}

func TestListRecordings(t *testing.T) {
	env := newTestEnv(t, acceptingRemote())
	path := env.writeRecording(t, "1700000000d60.mp4", 1024)

	var recs []map[string]interface{}
	resp := env.getJSON(t, "/", &recs)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, recs, 1)
	assert.Equal(t, path, recs[0]["path"])
	assert.Equal(t, float64(1024), recs[0]["size"])
	assert.Equal(t, float64(1700000000), recs[0]["timestamp"])
	assert.Equal(t, float64(60), recs[0]["duration"])
	assert.Equal(t, false, recs[0]["active"])
}

func TestSettingsRoundtrip(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.postJSON(t, "/settings", map[string]string{"upload_url": "http://example.com/up"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	var got map[string]string
	env.getJSON(t, "/settings", &got)
	assert.Equal(t, "http://example.com/up", got["upload_url"])

	resp, body = env.postJSON(t, "/settings", map[string]string{"upload_url": "not-a-url"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestUploadCompletedScenario(t *testing.T) {
	env := newTestEnv(t, acceptingRemote())
	path := env.writeRecording(t, "rec1.mp4", 256*1024)

	id := env.startUpload(t, path)
	snap := env.waitStatus(t, id, "completed")

	assert.Equal(t, float64(100), snap["progress"])
	assert.Equal(t, map[string]interface{}{"message": "stored"}, snap["result"])

	// The source file is gone after a clean completion.
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestUploadErrorScenario(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	path := env.writeRecording(t, "rec2.mp4", 64*1024)

	id := env.startUpload(t, path)
	snap := env.waitStatus(t, id, "error")

	assert.Equal(t, "Upload failed: 500", snap["error"])

	// The source file survives a failed upload.
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestUploadCancelledScenario(t *testing.T) {
	env := newTestEnv(t, slowRemote())
	// Big enough that loopback socket buffers cannot swallow the whole body,
	// so cancellation lands at a chunk boundary mid-transfer.
	path := env.writeRecording(t, "rec3.mp4", 32*1024*1024)

	id := env.startUpload(t, path)

	resp, body := env.postJSON(t, "/cancel-upload/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelling", body["status"])

	snap := env.waitStatus(t, id, "cancelled")
	assert.Equal(t, "Upload cancelled by user", snap["error"])
	assert.Equal(t, true, snap["cancelled"])

	// No deletion on cancellation.
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestUploadPreconditionErrors(t *testing.T) {
	t.Run("missing file is a bad request", func(t *testing.T) {
		env := newTestEnv(t, acceptingRemote())

		resp, body := env.postJSON(t, "/upload-recording", map[string]string{
			"file_path": filepath.Join(env.recordingsDir, "missing.mp4"),
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "File not found", body["error"])
	})

	t.Run("unconfigured endpoint is a bad request", func(t *testing.T) {
		env := newTestEnv(t, nil)
		path := env.writeRecording(t, "rec1.mp4", 1024)

		resp, body := env.postJSON(t, "/upload-recording", map[string]string{"file_path": path})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body["error"], "not configured")
	})

	t.Run("missing body field is a bad request", func(t *testing.T) {
		env := newTestEnv(t, nil)

		resp, _ := env.postJSON(t, "/upload-recording", map[string]string{})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUnknownTaskIs404(t *testing.T) {
	env := newTestEnv(t, nil)

	var snap map[string]interface{}
	resp := env.getJSON(t, "/upload-progress/01ARZ3NDEKTSV4RRFFQ69G5FAV", &snap)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, snap["error"])

	cancelResp, _ := env.postJSON(t, "/cancel-upload/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil)
	assert.Equal(t, http.StatusNotFound, cancelResp.StatusCode)
}

func TestDeleteRecording(t *testing.T) {
	t.Run("deletes an idle recording", func(t *testing.T) {
		env := newTestEnv(t, nil)
		path := env.writeRecording(t, "rec1.mp4", 1024)

		resp, body := env.postJSON(t, "/delete-recording", map[string]string{"file_path": path})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "deleted", body["status"])
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing file is a bad request", func(t *testing.T) {
		env := newTestEnv(t, nil)

		resp, body := env.postJSON(t, "/delete-recording", map[string]string{
			"file_path": filepath.Join(env.recordingsDir, "missing.mp4"),
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "File not found", body["error"])
	})

	t.Run("active upload is a conflict", func(t *testing.T) {
		env := newTestEnv(t, slowRemote())
		path := env.writeRecording(t, "rec1.mp4", 32*1024*1024)
		id := env.startUpload(t, path)

		resp, _ := env.postJSON(t, "/delete-recording", map[string]string{"file_path": path})

		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		// Cleanup: let the task finish as cancelled.
		env.postJSON(t, "/cancel-upload/"+id, nil)
		env.waitStatus(t, id, "cancelled")
	})
}

func TestUploadProgressStream(t *testing.T) {
	env := newTestEnv(t, acceptingRemote())
	path := env.writeRecording(t, "rec1.mp4", 512*1024)

	id := env.startUpload(t, path)

	resp, err := http.Get(env.api.URL + "/upload-progress-stream/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []map[string]interface{}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}

	require.NotEmpty(t, events)
	assert.Equal(t, "connected", events[0]["type"])

	last := events[len(events)-1]
	assert.Equal(t, "closed", last["type"])
	assert.Equal(t, "completed", last["status"])
	assert.Equal(t, float64(100), last["progress"])

	// Progress never regresses across the stream.
	prev := float64(-1)
	for _, ev := range events {
		p, ok := ev["progress"].(float64)
		if !ok {
			continue
		}
		assert.GreaterOrEqual(t, p, prev, "event: %v", ev)
		prev = p
	}
}

func TestStreamUnknownTaskIs404(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.api.URL + "/upload-progress-stream/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
