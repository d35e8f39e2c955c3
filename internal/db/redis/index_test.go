package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/aisearch/internal/db"
)

func recordsSchema() *db.Schema {
	return db.NewSchema("idx:records", "rec:").
		Tag("record_id").
		Numeric("year").
		Embedding("embedding", "vector", db.VectorSpec{Dim: 4, M: 16, EFConstruction: 200})
}

func TestCreateArgs(t *testing.T) {
	got := strings.Join(createArgs(recordsSchema()), " ")
	want := "idx:records ON HASH PREFIX 1 rec: SCHEMA " +
		"record_id TAG year NUMERIC " +
		"embedding AS vector VECTOR HNSW 10 TYPE FLOAT32 DIM 4 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200"
	if got != want {
		t.Errorf("args:\n got %s\nwant %s", got, want)
	}
}

func TestCreateArgs_FlatIgnoresHNSWParams(t *testing.T) {
	s := db.NewSchema("idx:p", "").
		Embedding("embedding", "", db.VectorSpec{Algorithm: db.VectorFlat, Dim: 2, M: 16})
	got := strings.Join(createArgs(s), " ")
	want := "idx:p ON HASH SCHEMA embedding VECTOR FLAT 6 TYPE FLOAT32 DIM 2 DISTANCE_METRIC COSINE"
	if got != want {
		t.Errorf("args:\n got %s\nwant %s", got, want)
	}
}

func TestCreateIndex(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
		return cmd[0] == "FT.CREATE" && cmd[1] == "idx:records"
	})).Return(mock.Result(mock.RedisString("OK")))

	if err := s.CreateIndex(context.Background(), recordsSchema()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(t *testing.T, err error)
	}{
		{
			name:  "exists",
			reply: "Index already exists",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, db.ErrIndexExists) {
					t.Errorf("expected ErrIndexExists, got %v", err)
				}
			},
		},
		{
			name:  "other",
			reply: "ERR bad DIM",
			check: func(t *testing.T, err error) {
				requireOpError(t, err, db.OpCreateIndex, "idx:records")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.Result(mock.RedisError(tt.reply)))
			tt.check(t, s.CreateIndex(context.Background(), recordsSchema()))
		})
	}
}

func TestCreateIndex_InvalidSchemaNeverReachesServer(t *testing.T) {
	s, _ := newMockStore(t)
	err := s.CreateIndex(context.Background(), db.NewSchema("idx:empty", "x:"))
	requireOpError(t, err, db.OpCreateIndex, "idx:empty")
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name    string
		reply   mockReply
		want    bool
		wantErr bool
	}{
		{name: "present", reply: mockReply{msg: "OK"}, want: true},
		{name: "redis unknown", reply: mockReply{redisErr: "Unknown index name"}},
		{name: "valkey not found", reply: mockReply{redisErr: "Index with name 'idx:passages' not found in database 0"}},
		{name: "failure", reply: mockReply{err: context.DeadlineExceeded}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "idx:passages")).Return(tt.reply.result())

			got, err := s.IndexExists(context.Background(), "idx:passages")
			if tt.wantErr {
				requireOpError(t, err, db.OpIndexInfo, "idx:passages")
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
