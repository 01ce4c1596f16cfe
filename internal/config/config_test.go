package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	conf, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if conf.Api.BaseURL != "http://localhost:8000" {
		t.Errorf("base url = %q", conf.Api.BaseURL)
	}
	if conf.Realtime.ReconnectDelay != 5*time.Second {
		t.Errorf("reconnect delay = %s", conf.Realtime.ReconnectDelay)
	}
	if conf.Heartbeat.Interval != 2*time.Minute {
		t.Errorf("heartbeat interval = %s", conf.Heartbeat.Interval)
	}
	if conf.Board.PageSize != 100 {
		t.Errorf("page size = %d", conf.Board.PageSize)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MULTICHAT_API_URL", "https://hub.example.com")
	conf, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if conf.Api.BaseURL != "https://hub.example.com" {
		t.Errorf("base url = %q", conf.Api.BaseURL)
	}
}
