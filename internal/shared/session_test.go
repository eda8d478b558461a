package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCommitStoresPayloadUnderSessionKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sm := NewSessionManager(client, "test_session", "secret", time.Hour, false)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("u-1")

	res := httptest.NewRecorder()
	if err := sm.Commit(context.Background(), res, httptest.NewRequest(http.MethodGet, "/", nil), sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	if !mr.Exists(SessionKey(sess.ID)) {
		t.Fatalf("payload must live under SessionKey(%q)", sess.ID)
	}

	if err := client.Del(context.Background(), SessionKey(sess.ID)).Err(); err != nil {
		t.Fatalf("delete by session key: %v", err)
	}
	reload := httptest.NewRequest(http.MethodGet, "/", nil)
	reload.AddCookie(&http.Cookie{Name: "test_session", Value: sess.ID})
	again, err := sm.Load(context.Background(), reload)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if again.User() != "" {
		t.Fatalf("deleting by SessionKey must log the session out, still has user %q", again.User())
	}
}
