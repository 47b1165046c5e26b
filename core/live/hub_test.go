package live

import (
	"encoding/json"
	"testing"
	"time"

	"playlister/model"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotifyPlayReachesSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	watcher := NewClient(hub, nil, "p1")
	other := NewClient(hub, nil, "p2")
	hub.Register(watcher)
	hub.Register(other)
	waitFor(t, func() bool { return hub.TotalClients() == 2 })

	hub.NotifyPlay(&model.Playlist{ID: "p1", Listens: 7, UniqueListeners: []string{"a", "b"}})

	select {
	case raw := <-watcher.Send:
		var ev PlayEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.Type != MsgTypePlay || ev.PlaylistID != "p1" || ev.Listens != 7 || ev.UniqueListenerCount != 2 || ev.Timestamp == 0 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	select {
	case raw := <-other.Send:
		t.Errorf("subscriber of another playlist got %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	slow := &Client{Hub: hub, Send: make(chan []byte, 1), PlaylistID: "p"}
	hub.Register(slow)
	waitFor(t, func() bool { return hub.ClientCount("p") == 1 })

	hub.Broadcast("p", []byte("one"))
	hub.Broadcast("p", []byte("two"))
	waitFor(t, func() bool { return hub.ClientCount("p") == 0 })

	if msg := <-slow.Send; string(msg) != "one" {
		t.Errorf("first message = %q", msg)
	}
	if _, ok := <-slow.Send; ok {
		t.Error("send channel of a dropped client should be closed")
	}

	// unregistering an already dropped client is harmless
	hub.Unregister(slow)
}

func TestStopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := NewClient(hub, nil, "p")
	hub.Register(c)
	waitFor(t, func() bool { return hub.ClientCount("p") == 1 })

	hub.Stop()
	hub.Stop()
	select {
	case _, ok := <-c.Send:
		if ok {
			t.Error("unexpected message after stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed on stop")
	}

	late := NewClient(hub, nil, "p")
	hub.Register(late)
	if _, ok := <-late.Send; ok {
		t.Error("register after stop should close the client")
	}
}
