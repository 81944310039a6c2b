package main

import (
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestRunServer_QuitShutsDown(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	done := make(chan error, 1)
	go func() { done <- runServer(srv, quit, time.Second) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServer = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after quit")
	}
}

func TestRunServer_ListenErrorReturns(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer taken.Close()

	srv := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}
	quit := make(chan os.Signal, 1)

	done := make(chan error, 1)
	go func() { done <- runServer(srv, quit, time.Second) }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "failed to start server") {
			t.Fatalf("runServer = %v, want start failure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return on listen error")
	}
}
