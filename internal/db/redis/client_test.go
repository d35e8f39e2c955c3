package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/aisearch/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return NewStoreForTest(c), c
}

// mockReply is one canned server answer: a status string, an error reply, or a transport error.
type mockReply struct {
	msg      string
	redisErr string
	err      error
}

func (r mockReply) result() rueidis.RedisResult {
	switch {
	case r.err != nil:
		return mock.ErrorResult(r.err)
	case r.redisErr != "":
		return mock.Result(mock.RedisError(r.redisErr))
	default:
		return mock.Result(mock.RedisString(r.msg))
	}
}

func requireOpError(t *testing.T, err error, op, target string) {
	t.Helper()
	var de *db.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *db.Error, got %v", err)
	}
	if de.Op != op || de.Target != target {
		t.Errorf("got op=%q target=%q, want %q %q", de.Op, de.Target, op, target)
	}
}

func TestNewStore_NoAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addresses")
	}
}

func TestClientOption(t *testing.T) {
	opt := clientOption(Config{Addrs: []string{"a:6379"}, Username: "u", Password: "p", DB: 2})
	if !opt.DisableCache || !opt.AlwaysRESP2 {
		t.Error("cache must be off and RESP2 forced")
	}
	if opt.SelectDB != 2 || opt.Username != "u" || opt.InitAddress[0] != "a:6379" {
		t.Errorf("unexpected option: %+v", opt)
	}
}

func TestPing(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG")))
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(context.DeadlineExceeded))
	if err := s.Ping(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestWaitForReady_Retries(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("loading"))).Times(2),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
	)
	if err := s.WaitForReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).AnyTimes()

	err := s.WaitForReady(context.Background(), 120*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout")
	}
}

func TestServerSaid(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "x")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))
	err := s.command(context.Background(), db.OpIndexInfo, "x").Error()

	if !serverSaid(err, "unknown index name") {
		t.Error("match must ignore case")
	}
	if serverSaid(err, "already exists") {
		t.Error("unexpected match")
	}
	if serverSaid(errors.New("unknown index name"), "unknown index name") {
		t.Error("client-side errors are not server replies")
	}
}
