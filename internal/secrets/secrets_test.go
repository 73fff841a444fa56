package secrets

import (
	"errors"
	"testing"
)

func TestEnvProviderMapsDashesToUnderscores(t *testing.T) {
	t.Setenv("WIX_API_KEY", "k-123")

	p := &EnvProvider{}
	got, err := p.Get("WIX-API-KEY")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "k-123" {
		t.Fatalf("Get = %q", got)
	}
}

func TestEnvProviderPrefix(t *testing.T) {
	t.Setenv("APP_SPEECH_KEY", "s-456")

	p := &EnvProvider{Prefix: "APP_"}
	got, err := p.Get("speech-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "s-456" {
		t.Fatalf("Get = %q", got)
	}
}

func TestEnvProviderMissing(t *testing.T) {
	p := &EnvProvider{}
	if _, err := p.Get("DOES-NOT-EXIST-ANYWHERE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStatic(t *testing.T) {
	s := Static{"KEY1-SPEECH": "abc"}
	if got, err := s.Get("KEY1-SPEECH"); err != nil || got != "abc" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := s.Get("other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
