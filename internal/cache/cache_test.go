package cache

import (
	"context"
	"errors"
	"path"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

type mockCmdable struct {
	data     map[string]string
	ttls     map[string]time.Duration
	scanPage int
	delErr   error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string), ttls: make(map[string]time.Duration), scanPage: 1}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if m.delErr != nil {
		return redis.NewIntResult(0, m.delErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// Scan returns matching keys scanPage at a time, in sorted order, so the
// cursor loop is exercised.
func (m *mockCmdable) Scan(_ context.Context, cursor uint64, match string, _ int64) *redis.ScanCmd {
	var all []string
	for k := range m.data {
		if ok, _ := path.Match(match, k); ok {
			all = append(all, k)
		}
	}
	sort.Strings(all)
	start := int(cursor)
	end := start + m.scanPage
	if end >= len(all) {
		if start > len(all) {
			start = len(all)
		}
		return redis.NewScanCmdResult(all[start:], 0, nil)
	}
	return redis.NewScanCmdResult(all[start:end], uint64(end), nil)
}

func TestKeys(t *testing.T) {
	if got := ListingKey("7"); got != "media:list:7" {
		t.Errorf("ListingKey() = %q", got)
	}
	if got := SharedListingKey("7"); got != "media:list:7:shared" {
		t.Errorf("SharedListingKey() = %q", got)
	}
}

func TestListingRoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	c := &Cache{store: mock, ttl: 300 * time.Second}

	if _, hit, err := c.GetListing(ctx, ListingKey("7")); hit || err != nil {
		t.Fatalf("GetListing() on empty cache = hit %v, err %v", hit, err)
	}

	recs := []media.Record{{ID: "42", Status: media.StatusReady, Metadata: &media.ImageMetadata{Width: 1000, Height: 500}}}
	if err := c.SetListing(ctx, ListingKey("7"), recs); err != nil {
		t.Fatalf("SetListing() error = %v", err)
	}
	if mock.ttls[ListingKey("7")] != 300*time.Second {
		t.Errorf("ttl = %v, want 300s", mock.ttls[ListingKey("7")])
	}

	got, hit, err := c.GetListing(ctx, ListingKey("7"))
	if err != nil || !hit {
		t.Fatalf("GetListing() = hit %v, err %v", hit, err)
	}
	if len(got) != 1 || got[0].ID != "42" {
		t.Fatalf("GetListing() = %+v", got)
	}
	if im, ok := got[0].Metadata.(*media.ImageMetadata); !ok || im.Width != 1000 {
		t.Errorf("metadata = %#v", got[0].Metadata)
	}
}

func TestGetListingUnreadableIsMiss(t *testing.T) {
	mock := newMockCmdable()
	mock.data["media:list:1"] = "{not json"
	c := &Cache{store: mock}
	if _, hit, err := c.GetListing(context.Background(), "media:list:1"); hit || err != nil {
		t.Errorf("GetListing() = hit %v, err %v; want miss", hit, err)
	}
}

func TestInvalidateUser(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	for _, k := range []string{"media:list:7", "media:list:7:shared", "media:list:7:page:2", "media:list:70", "media:list:8"} {
		mock.data[k] = "[]"
	}
	c := &Cache{store: mock}

	deleted, err := c.InvalidateUser(ctx, "7")
	if err != nil {
		t.Fatalf("InvalidateUser() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	for _, k := range []string{"media:list:7", "media:list:7:shared", "media:list:7:page:2"} {
		if _, ok := mock.data[k]; ok {
			t.Errorf("%s still cached", k)
		}
	}
	for _, k := range []string{"media:list:70", "media:list:8"} {
		if _, ok := mock.data[k]; !ok {
			t.Errorf("%s was wrongly invalidated", k)
		}
	}
}

func TestInvalidateUserError(t *testing.T) {
	mock := newMockCmdable()
	mock.delErr = errors.New("connection refused")
	c := &Cache{store: mock}
	if _, err := c.InvalidateUser(context.Background(), "7"); err == nil {
		t.Error("expected DEL error to propagate")
	}
}

func TestInvalidateShared(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	for _, k := range []string{"media:list:8", "media:list:8:shared", "media:list:9:shared", "media:list:10:shared"} {
		mock.data[k] = "[]"
	}
	c := &Cache{store: mock}

	if err := c.InvalidateShared(ctx, []string{"8", "9"}); err != nil {
		t.Fatalf("InvalidateShared() error = %v", err)
	}
	for _, k := range []string{"media:list:8:shared", "media:list:9:shared"} {
		if _, ok := mock.data[k]; ok {
			t.Errorf("%s still cached", k)
		}
	}
	for _, k := range []string{"media:list:8", "media:list:10:shared"} {
		if _, ok := mock.data[k]; !ok {
			t.Errorf("%s was wrongly invalidated", k)
		}
	}

	mock.delErr = errors.New("connection refused")
	if err := c.InvalidateShared(ctx, nil); err != nil {
		t.Errorf("empty recipients must not touch Redis: %v", err)
	}
	if err := c.InvalidateShared(ctx, []string{"8"}); err == nil {
		t.Error("expected DEL error to propagate")
	}
}

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob("media:list:a*b?[c]"); got != `media:list:a\*b\?\[c\]` {
		t.Errorf("escapeGlob() = %q", got)
	}
}

func TestOptionsFrom(t *testing.T) {
	if _, err := optionsFrom(Options{}); err == nil {
		t.Error("empty address should fail")
	}
	ro, err := optionsFrom(Options{Addr: "cache:6379", TLS: true, DialTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if ro.TLSConfig == nil || ro.DialTimeout != 2*time.Second {
		t.Errorf("options = %+v", ro)
	}
	ro, err = optionsFrom(Options{Addr: "redis://:secret@cache:6380/2"})
	if err != nil {
		t.Fatal(err)
	}
	if ro.Addr != "cache:6380" || ro.DB != 2 || ro.Password != "secret" {
		t.Errorf("parsed URL options = addr %q db %d", ro.Addr, ro.DB)
	}
}
