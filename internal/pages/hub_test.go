package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHubBroadcastsAndRoutesInbound(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	inbound := make(chan Message, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := hub.NewClient(context.Background(), conn, "page-1", func(_ context.Context, m Message) *Message {
			inbound <- m
			return &Message{Type: MessageError, Payload: "handled"}
		}, nil)
		hub.Register(c)
		go c.WritePump()
		go c.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.RoomSize("page-1") == 1 })

	hub.BroadcastToRoom("page-1", Message{Type: MessageView, PageID: "page-1"})
	hub.BroadcastToRoom("page-2", Message{Type: MessageView, PageID: "page-2"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read view: %v", err)
	}
	if got.Type != MessageView || got.PageID != "page-1" {
		t.Fatalf("unexpected message %+v", got)
	}

	if err := conn.WriteJSON(Message{Type: MessageSelectLeague, LeagueID: "league-1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case m := <-inbound:
		if m.Type != MessageSelectLeague || m.LeagueID != "league-1" {
			t.Fatalf("unexpected inbound %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inbound message not routed")
	}

	var reply Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if reply.Type != MessageError || reply.Payload != "handled" {
		t.Fatalf("unexpected reply %+v", reply)
	}

	hub.CloseRoom("page-1")
	if err := conn.ReadJSON(&reply); err == nil {
		t.Fatal("expected connection to close with the room")
	}
	waitFor(t, func() bool { return hub.RoomSize("page-1") == 0 })
}

func TestHubRegisterAfterShutdown(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	c := &Client{hub: hub, send: make(chan []byte, 1), room: "late"}
	hub.Register(c)
	hub.CloseRoom("late")
	if !c.closed {
		t.Fatal("expected late client to be closed")
	}
}
