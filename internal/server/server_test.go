package server

import (
	"io"
	"testing"
	"time"

	"dfi/pkg/types"

	"github.com/sirupsen/logrus"
)

func TestNewAppliesConfiguredTimeouts(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	config := &types.Config{
		ServerPort:      8080,
		ReadTimeoutSec:  10,
		WriteTimeoutSec: 15,
	}

	svc, err := New(config, logger, nil, nil, nil, nil, nil, nil, "")
	if err != nil {
		t.Fatal(err)
	}

	if got := svc.server.ReadTimeout; got != 10*time.Second {
		t.Errorf("expected 10s read timeout, got %v", got)
	}
	if got := svc.server.WriteTimeout; got != 15*time.Second {
		t.Errorf("expected 15s write timeout, got %v", got)
	}
}
