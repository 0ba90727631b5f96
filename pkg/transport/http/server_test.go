package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	gohttp "net/http"
	"testing"
	"time"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/transport"
)

type testServerCreator struct {
	run *api.Run
}

func (c *testServerCreator) CreateRun(ctx context.Context, req *api.RunRequest, w transport.ResponseWriter) error {
	return w.WriteRun(ctx, c.run)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	return bytes.NewReader(data)
}

// serve starts srv on a loopback listener and returns its address and a
// function that stops it and reports the ServeOn result.
func serve(t *testing.T, srv *Server) (string, func() error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeOn(ctx, ln) }()

	return ln.Addr().String(), func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("server did not stop")
			return nil
		}
	}
}

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	creator := &testServerCreator{
		run: &api.Run{
			ID:     testRunID,
			Status: api.RunStatusCompleted,
			Model:  "test-model",
		},
	}

	srv := NewServer(creator, nil, WithMetrics(false))
	addr, stop := serve(t, srv)

	resp, err := gohttp.Post("http://"+addr+"/v1/runs", "application/json",
		jsonBody(t, api.RunRequest{Prompt: "hi"}))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}

	var got api.Run
	json.NewDecoder(resp.Body).Decode(&got)
	if got.ID != testRunID {
		t.Errorf("run ID = %q, want %q", got.ID, testRunID)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set by default middleware")
	}

	if err := stop(); err != nil {
		t.Errorf("ServeOn returned %v", err)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	slowCreator := transport.RunCreatorFunc(func(ctx context.Context, req *api.RunRequest, w transport.ResponseWriter) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return w.WriteRun(ctx, &api.Run{ID: testRunID, Status: api.RunStatusCompleted})
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	srv := NewServer(slowCreator, nil,
		WithMetrics(false),
		WithShutdownTimeout(5*time.Second),
	)
	addr, stop := serve(t, srv)

	statusCh := make(chan int, 1)
	go func() {
		resp, err := gohttp.Post("http://"+addr+"/v1/runs", "application/json",
			bytes.NewReader([]byte(`{"prompt":"hi"}`)))
		if err != nil {
			statusCh <- 0
			return
		}
		defer resp.Body.Close()
		statusCh <- resp.StatusCode
	}()

	time.Sleep(50 * time.Millisecond)
	if err := stop(); err != nil {
		t.Errorf("ServeOn returned %v", err)
	}

	if status := <-statusCh; status != gohttp.StatusOK {
		t.Errorf("slow request status = %d, want %d", status, gohttp.StatusOK)
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	srv := NewServer(&testServerCreator{}, nil,
		WithAddr(":9999"),
		WithMaxBodySize(1024),
		WithShutdownTimeout(10*time.Second),
		WithMetrics(false),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.config.MaxBodySize != 1024 {
		t.Errorf("max body size = %d, want %d", srv.config.MaxBodySize, 1024)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
	if srv.config.Metrics {
		t.Error("metrics should be disabled")
	}
}

func TestServerListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	defer ln.Close()

	srv := NewServer(&testServerCreator{}, nil, WithAddr(ln.Addr().String()), WithMetrics(false))
	if err := srv.ListenAndServe(context.Background()); err == nil {
		t.Error("expected error for an address already in use")
	}
}
