package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"estatechat/internal/app/store"
)

func pollServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer poll-token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"error":{"code":3003,"message":"Please sign in to continue."}}`)
			return
		}

		switch r.URL.Query().Get("action") {
		case "get_messages":
			if r.URL.Query().Get("partner_id") != "2" {
				fmt.Fprint(w, `{"success":false,"error":{"code":1001,"message":"Invalid request parameters."}}`)
				return
			}
			fmt.Fprint(w, `{"success":true,"data":{"messages":[
				{"message_id":1,"sender_id":2,"receiver_id":1,"message":"hello","is_read":false,"created_at":"2026-08-30T10:00:00Z"},
				{"message_id":2,"sender_id":1,"receiver_id":2,"message":"hi back","is_read":true,"created_at":"2026-08-30T10:00:05Z"}
			]}}`)

		case "unread_count":
			fmt.Fprint(w, `{"success":true,"data":{"unread_count":3}}`)

		default:
			fmt.Fprint(w, `{"success":false,"error":{"code":1006,"message":"Unknown action."}}`)
		}
	}))

	t.Cleanup(srv.Close)
	return srv
}

func TestPollerFetchMessages(t *testing.T) {
	srv := pollServer(t)
	poller := NewPoller(srv.URL, "poll-token", time.Second)

	messages, err := poller.FetchMessages(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchMessages() error = %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].ID != 1 || messages[0].Body != "hello" {
		t.Errorf("messages[0] = %+v", messages[0])
	}
	if messages[1].SenderID != 1 {
		t.Errorf("messages[1].SenderID = %d, want 1", messages[1].SenderID)
	}
}

func TestPollerUnreadCount(t *testing.T) {
	srv := pollServer(t)
	poller := NewPoller(srv.URL, "poll-token", time.Second)

	count, err := poller.UnreadCount(context.Background())
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 3 {
		t.Errorf("UnreadCount() = %d, want 3", count)
	}
}

func TestPollerRejectedEnvelope(t *testing.T) {
	srv := pollServer(t)
	poller := NewPoller(srv.URL, "wrong-token", time.Second)

	if _, err := poller.FetchMessages(context.Background(), 2); err == nil {
		t.Error("FetchMessages() succeeded with a rejected envelope")
	}
}

func TestPollerRunDeliversBatches(t *testing.T) {
	srv := pollServer(t)
	poller := NewPoller(srv.URL, "poll-token", 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []store.ChatMessage, 4)
	go poller.Run(ctx, 2, func(messages []store.ChatMessage) {
		select {
		case batches <- messages:
		default:
		}
	})

	select {
	case batch := <-batches:
		if len(batch) != 2 {
			t.Errorf("batch has %d messages, want 2", len(batch))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run never delivered a batch")
	}
}
