package shared

import (
	"net/http/httptest"
	"testing"
)

func TestNegotiateLocaleDefaultsToKhmer(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := NegotiateLocale(req, nil); got != "km" {
		t.Fatalf("expected km default, got %s", got)
	}
}

func TestNegotiateLocaleHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if got := NegotiateLocale(req, nil); got != "en" {
		t.Fatalf("expected en from header, got %s", got)
	}
}

func TestNegotiateLocaleSessionWins(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	sess := &Session{}
	sess.Set(SessionLocaleKey, "km")
	if got := NegotiateLocale(req, sess); got != "km" {
		t.Fatalf("session preference must win, got %s", got)
	}
}
