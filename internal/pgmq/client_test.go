package pgmq

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

func TestSendReadDeleteRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set, skip pgmq integration test")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS pgmq"); err != nil {
		t.Skipf("pgmq extension unavailable: %v", err)
	}

	ctx := context.Background()
	client := New(db)
	queue := "completion_queue_test"
	if err := client.CreateQueue(ctx, queue); err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"attempt_id": "a1"})
	if err := client.Send(ctx, queue, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs, err := client.ReadWithPoll(ctx, queue, 30, 10, 1)
	if err != nil {
		t.Fatalf("ReadWithPoll: %v", err)
	}
	if len(msgs) == 0 {
		t.Fatal("expected at least one message")
	}
	if msgs[0].ReadCount < 1 {
		t.Errorf("expected read count >= 1, got %d", msgs[0].ReadCount)
	}
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if err := client.Delete(ctx, queue, ids); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestDeleteEmptyIsNoop(t *testing.T) {
	c := New(nil)
	if err := c.Delete(context.Background(), "q", nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
