package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("STATS_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.SweepInterval != "5m" {
		t.Errorf("SweepInterval = %q, want %q", cfg.SweepInterval, "5m")
	}
	if cfg.IdleTimeout != "15m" {
		t.Errorf("IdleTimeout = %q, want %q", cfg.IdleTimeout, "15m")
	}
	if cfg.StatsTimezone != "UTC" {
		t.Errorf("StatsTimezone = %q, want %q", cfg.StatsTimezone, "UTC")
	}
	if cfg.EventsKafkaTopic != "presence-events" {
		t.Errorf("EventsKafkaTopic = %q, want %q", cfg.EventsKafkaTopic, "presence-events")
	}
	if cfg.KafkaGroupID != "presence-events-worker" {
		t.Errorf("KafkaGroupID = %q, want %q", cfg.KafkaGroupID, "presence-events-worker")
	}
	if cfg.OTLPInsecure {
		t.Error("OTLPInsecure should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("STATS_KEY", "secret")
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("SWEEP_INTERVAL", "1m")
	os.Setenv("STATS_TIMEZONE", "Asia/Seoul")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.SweepInterval != "1m" {
		t.Errorf("SweepInterval = %q, want %q", cfg.SweepInterval, "1m")
	}
	if got := cfg.Location().String(); got != "Asia/Seoul" {
		t.Errorf("Location = %q, want %q", got, "Asia/Seoul")
	}
}

func TestLoad_StatsKeyRequired(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load without STATS_KEY should return error")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	os.Clearenv()
	os.Setenv("STATS_KEY", "secret")
	os.Setenv("STATS_TIMEZONE", "Not/AZone")

	if _, err := Load(); err == nil {
		t.Fatal("Load with invalid STATS_TIMEZONE should return error")
	}
}

func TestSweepEvery(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "2m", 2 * time.Minute},
		{"invalid", "soon", 5 * time.Minute},
		{"empty", "", 5 * time.Minute},
		{"negative", "-1m", 5 * time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{SweepInterval: tc.value}
			if got := cfg.SweepEvery(); got != tc.want {
				t.Errorf("SweepEvery() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIdleThreshold(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"invalid", "never", 15 * time.Minute},
		{"zero", "0s", 15 * time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{IdleTimeout: tc.value}
			if got := cfg.IdleThreshold(); got != tc.want {
				t.Errorf("IdleThreshold() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLocation_ZeroValueFallsBackToUTC(t *testing.T) {
	cfg := &Config{}
	if got := cfg.Location(); got != time.UTC {
		t.Errorf("Location() = %v, want UTC", got)
	}
}

func TestEventsKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		name    string
		brokers string
		want    int
	}{
		{"empty", "", 0},
		{"single", "localhost:9092", 1},
		{"multiple", "a:9092,b:9092", 2},
		{"whitespace and empties", " a:9092 , , b:9092 ", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{EventsKafkaBrokers: tc.brokers}
			if got := cfg.EventsKafkaBrokersList(); len(got) != tc.want {
				t.Errorf("EventsKafkaBrokersList() = %v, want %d entries", got, tc.want)
			}
		})
	}
}
