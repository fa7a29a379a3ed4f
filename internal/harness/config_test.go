// v1
// internal/harness/config_test.go
package harness

import (
	"errors"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{Duration: time.Minute}.WithDefaults()
}

func TestWithDefaults(t *testing.T) {
	c := Config{Duration: time.Minute}.WithDefaults()
	if c.Transport != TransportDirect {
		t.Fatalf("transport default = %q", c.Transport)
	}
	if c.TopicRoot != "NLDF" {
		t.Fatalf("topic root default = %q", c.TopicRoot)
	}
	if c.PerCallTimeout != 2*time.Second {
		t.Fatalf("per-call timeout default = %s", c.PerCallTimeout)
	}
	if c.PollInterval != 250*time.Millisecond {
		t.Fatalf("poll interval default = %s", c.PollInterval)
	}
	if c.Lines != 1 {
		t.Fatalf("lines default = %d", c.Lines)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -time.Second }},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }},
		{"networked mqtt without address", func(c *Config) {
			c.Transport = TransportNetworked
			c.Broker = BrokerMQTT
			c.MQTTBrokerAddr = ""
		}},
		{"networked kafka without brokers", func(c *Config) {
			c.Transport = TransportNetworked
			c.Broker = BrokerKafka
			c.KafkaBrokers = nil
		}},
		{"networked unknown broker", func(c *Config) {
			c.Transport = TransportNetworked
			c.Broker = "zeromq"
		}},
		{"wildcard in topic root", func(c *Config) { c.TopicRoot = "NLDF+" }},
		{"hash in topic root", func(c *Config) { c.TopicRoot = "a#b" }},
		{"leading slash in topic root", func(c *Config) { c.TopicRoot = "/NLDF" }},
		{"whitespace in topic root", func(c *Config) { c.TopicRoot = "NL DF" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("error %v does not wrap ErrConfig", err)
			}
		})
	}
}

func TestValidateAcceptsDirectDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestLineNames(t *testing.T) {
	c := validConfig()
	c.Lines = 3
	got := c.LineNames()
	want := []string{"line1", "line2", "line3"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}
