package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx, stop := SetupSignalHandler(context.Background())
	defer stop()

	select {
	case <-ctx.Done():
		t.Error("Context should not be cancelled initially")
	default:
	}
}

func TestSetupSignalHandler_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SetupSignalHandler(parent)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("context not cancelled with its parent")
	}
}

func TestSetupSignalHandler_SIGTERM(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping signal test in short mode")
	}
	ctx, stop := SetupSignalHandler(context.Background())
	defer stop()

	p, _ := os.FindProcess(os.Getpid())
	_ = p.Signal(syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Error("context not cancelled by SIGTERM")
	}
}

func TestReloadSignals(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping signal test in short mode")
	}
	sigChan, stop := ReloadSignals()
	defer stop()

	select {
	case <-sigChan:
		t.Fatal("Signal channel should be empty initially")
	default:
	}

	p, _ := os.FindProcess(os.Getpid())
	_ = p.Signal(syscall.SIGHUP)

	select {
	case sig := <-sigChan:
		if sig != syscall.SIGHUP {
			t.Errorf("Expected SIGHUP, got %v", sig)
		}
	case <-time.After(2 * time.Second):
		t.Error("SIGHUP not received")
	}
}
