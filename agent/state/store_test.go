package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUpstashRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{keyPrefix: defaultStoreKeyPrefix}
	got, err := store.redisKey("user-1")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "helia:agent:state:user-1" {
		t.Fatalf("redisKey() = %q, want %q", got, "helia:agent:state:user-1")
	}
}

func TestUpstashRedisStoreRedisKeyEmptyPrincipal(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{keyPrefix: defaultStoreKeyPrefix}
	_, err := store.redisKey("   ")
	if !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidPrincipal", err)
	}
}

func TestUpstashRedisStoreSaveSendsSetCommand(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	st := NewPersonalizationState("user-1", time.Now())
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) != 3 {
		t.Fatalf("command length = %d, want 3", len(gotCommand))
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != "helia:agent:state:user-1" {
		t.Fatalf("key = %v, want prefixed principal key", gotCommand[1])
	}
}

func TestUpstashRedisStoreLoadRoundTrip(t *testing.T) {
	t.Parallel()

	st := NewPersonalizationState("user-1", time.Now())
	st.Preferences["language"] = "en"
	payload, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	got, err := store.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.PrincipalID != "user-1" {
		t.Fatalf("PrincipalID = %q, want user-1", got.PrincipalID)
	}
	if got.Preferences["language"] != "en" {
		t.Fatalf("Preferences = %#v, want language=en", got.Preferences)
	}
}

func TestUpstashRedisStoreLoadNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	_, err = store.Load(context.Background(), "missing-user")
	if !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestUpstashRedisStoreSurfacesRedisError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGTYPE"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	if _, err := store.Load(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error but got nil")
	}
}

func TestManagerLoadReturnsFreshStateForNewPrincipal(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore())
	st, err := manager.Load(context.Background(), "brand-new")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.PrincipalID != "brand-new" {
		t.Fatalf("PrincipalID = %q, want brand-new", st.PrincipalID)
	}
	if len(st.Preferences) != 0 || len(st.LearningPoints) != 0 {
		t.Fatalf("fresh state is not empty: %#v", st)
	}
}

func TestManagerMergePreferencesLatestWins(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore())
	ctx := context.Background()

	if err := manager.MergePreferences(ctx, "user-1", map[string]string{"tone": "verbose", "language": "en"}); err != nil {
		t.Fatalf("MergePreferences() error = %v", err)
	}
	if err := manager.MergePreferences(ctx, "user-1", map[string]string{"tone": "concise"}); err != nil {
		t.Fatalf("MergePreferences() error = %v", err)
	}

	st, err := manager.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.Preferences["tone"] != "concise" {
		t.Fatalf("tone = %q, want the newer value", st.Preferences["tone"])
	}
	if st.Preferences["language"] != "en" {
		t.Fatalf("language = %q, earlier key must survive the merge", st.Preferences["language"])
	}
}

func TestManagerAppendLearningPointDeduplicates(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := manager.AppendLearningPoint(ctx, "user-1", "Prefers metric units"); err != nil {
			t.Fatalf("AppendLearningPoint() error = %v", err)
		}
	}

	st, err := manager.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(st.LearningPoints) != 1 {
		t.Fatalf("LearningPoints = %#v, want a single deduplicated entry", st.LearningPoints)
	}
}
