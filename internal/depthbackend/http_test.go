package depthbackend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPClientInfer(t *testing.T) {
	var received inferRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			w.WriteHeader(http.StatusOK)
		case "/infer":
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("decode request: %v", err)
			}
			json.NewEncoder(w).Encode(inferResponse{OK: true, Log: "done"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL+"/", 5)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if err := client.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}

	result, err := client.Infer(context.Background(), Request{
		SceneVideo: "scene_001.mp4",
		Resolution: 720,
		FPS:        24,
		OutputNPZ:  "scene_001_depth.npz",
	})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if result.Output != "done" {
		t.Errorf("output = %q", result.Output)
	}
	if received.Video != "scene_001.mp4" || received.Output != "scene_001_depth.npz" || received.Resolution != 720 {
		t.Errorf("service received %+v", received)
	}
}

func TestHTTPClientSurfacesFailureBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "CUDA out of memory on device 0", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, 5)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	result, err := client.Infer(context.Background(), Request{
		SceneVideo: "scene_001.mp4",
		OutputNPZ:  "scene_001_depth.npz",
	})
	if err == nil {
		t.Fatal("Infer succeeded on 500 response")
	}
	if !strings.Contains(result.Output, "CUDA out of memory") {
		t.Errorf("failure body not surfaced for classification: %q", result.Output)
	}
	if NewClassifier().Classify(err, result.Output) != FailureResourceExhausted {
		t.Error("surfaced body did not classify as resource exhaustion")
	}
}

func TestHTTPClientStatusFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, 5)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if err := client.Status(context.Background()); err == nil {
		t.Error("Status succeeded on 503")
	}
}
