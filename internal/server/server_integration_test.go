package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/camtrack/internal/store"
)

func seedRun(t *testing.T, s *store.Store) *store.Run {
	t.Helper()
	run := &store.Run{
		Detector:       "SHITOMASI",
		Descriptor:     "BRISK",
		Matcher:        "MAT_BF",
		Selector:       "SEL_KNN",
		DescriptorKind: "BINARY",
		Source:         "images/KITTI",
	}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		err := s.Frames().Add(&store.FrameResult{RunID: run.ID, FrameIndex: i, Keypoints: 100 + i, Matches: 90})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	return run
}

func TestAPI_RunWorkflow(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	run := seedRun(t, s)

	ts := httptest.NewServer(New(Config{Store: s}))
	defer ts.Close()
	client := ts.Client()

	// 1. List runs
	resp, err := client.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("GET /api/runs error = %v", err)
	}
	var listed struct {
		Runs []store.Run `json:"runs"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || len(listed.Runs) != 1 {
		t.Fatalf("GET /api/runs = %d with %d runs, want 200 with 1", resp.StatusCode, len(listed.Runs))
	}
	if listed.Runs[0].ID != run.ID || listed.Runs[0].Detector != "SHITOMASI" {
		t.Errorf("listed run = %+v", listed.Runs[0])
	}

	// 2. Get one run with its frames
	resp, _ = client.Get(ts.URL + "/api/runs/" + run.ID)
	var got struct {
		ID      string              `json:"id"`
		Results []store.FrameResult `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/runs/%s status = %d", run.ID, resp.StatusCode)
	}
	if got.ID != run.ID || len(got.Results) != 3 || got.Results[2].Keypoints != 102 {
		t.Errorf("run detail = %+v", got)
	}

	// 3. Unsupported method on the collection
	resp, _ = client.Post(ts.URL+"/api/runs", "application/json", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/runs status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}

	// 4. Delete
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/runs/"+run.ID, nil)
	resp, _ = client.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	// 5. Gone, including its frames
	resp, _ = client.Get(ts.URL + "/api/runs/" + run.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	frames, err := s.Frames().ListByRun(run.ID)
	if err != nil || len(frames) != 0 {
		t.Errorf("frames after delete = %d, %v", len(frames), err)
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/runs/"+run.ID, nil)
	resp, _ = client.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestAPI_EmptyRunList(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	ts := httptest.NewServer(New(Config{Store: s}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("GET /api/runs error = %v", err)
	}
	defer resp.Body.Close()

	var body map[string]json.RawMessage
	json.NewDecoder(resp.Body).Decode(&body)
	if string(body["runs"]) != "[]" {
		t.Errorf("runs = %s, want []", body["runs"])
	}
}

func TestServer_ListenAndServe_Shutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	srv := New(Config{Live: NewLiveHandler()})

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, addr) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/api/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
