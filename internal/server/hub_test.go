package server

import (
	"encoding/json"
	"errors"
	"testing"
)

// fakeClient is a Client with no socket; only its queue is used.
func fakeClient(id string, queue int) *Client {
	return &Client{id: id, ip: "127.0.0.1", send: make(chan []byte, queue), done: make(chan struct{})}
}

func drain(c *Client) []outbound {
	var out []outbound
	for {
		select {
		case frame := <-c.send:
			var o outbound
			json.Unmarshal(frame, &o)
			out = append(out, o)
		default:
			return out
		}
	}
}

func TestHub_RoomDelivery(t *testing.T) {
	h := NewHub()
	a, b, outsider := fakeClient("a", 8), fakeClient("b", 8), fakeClient("c", 8)
	for _, c := range []*Client{a, b, outsider} {
		h.register(c)
	}
	h.Join(1000, "a")
	h.Join(1000, "b")
	h.Join(1000, "ghost") // unknown connections are ignored

	h.ToRoom(1000, "first", map[string]int{"n": 1})
	h.ToClient("a", "second", nil)
	h.ToRoom(1000, "third", nil)

	got := drain(a)
	if len(got) != 3 || got[0].Event != "first" || got[1].Event != "second" || got[2].Event != "third" {
		t.Errorf("a got %+v", got)
	}
	if got := drain(b); len(got) != 2 {
		t.Errorf("b got %d frames, want 2", len(got))
	}
	if got := drain(outsider); len(got) != 0 {
		t.Errorf("outsider got %+v", got)
	}
	if h.RoomSize(1000) != 2 {
		t.Errorf("RoomSize = %d, want 2", h.RoomSize(1000))
	}
}

func TestHub_LeaveAndCloseRoom(t *testing.T) {
	h := NewHub()
	a, b := fakeClient("a", 8), fakeClient("b", 8)
	h.register(a)
	h.register(b)
	h.Join(1, "a")
	h.Join(1, "b")
	h.Join(2, "a")

	h.Leave(1, "b")
	h.ToRoom(1, "x", nil)
	if len(drain(b)) != 0 {
		t.Error("b left room 1 but still got its events")
	}

	h.CloseRoom(1)
	h.ToRoom(1, "y", nil)
	if got := drain(a); len(got) != 1 {
		t.Errorf("a got %d frames, want only the one before CloseRoom", len(got))
	}

	h.unregister(a)
	if h.RoomSize(2) != 0 || h.Count() != 1 {
		t.Errorf("after unregister: room 2 size %d, clients %d", h.RoomSize(2), h.Count())
	}
}

func TestHub_PayloadEncodedAtCallTime(t *testing.T) {
	h := NewHub()
	a := fakeClient("a", 8)
	h.register(a)

	state := map[string]int{"hp": 4}
	h.ToClient("a", "hp", state)
	state["hp"] = 0

	var data struct {
		HP int `json:"hp"`
	}
	got := drain(a)
	raw, _ := json.Marshal(got[0].Data)
	json.Unmarshal(raw, &data)
	if data.HP != 4 {
		t.Errorf("hp = %d, want the value at send time (4)", data.HP)
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := NewHub()
	slow := fakeClient("slow", 2)
	h.register(slow)

	for i := 0; i < 3; i++ {
		h.ToClient("slow", "tick", i)
	}

	select {
	case <-slow.done:
	default:
		t.Fatal("client with a full queue should be closed")
	}
	if !errors.Is(slow.closeErr, ErrBackpressure) {
		t.Errorf("closeErr = %v, want ErrBackpressure", slow.closeErr)
	}

	// Nothing more is queued once closed.
	drain(slow)
	h.ToClient("slow", "late", nil)
	if len(slow.send) != 0 {
		t.Error("closed client should not receive frames")
	}
}

func TestHub_UnencodablePayloadIsDropped(t *testing.T) {
	h := NewHub()
	a := fakeClient("a", 8)
	h.register(a)

	h.ToClient("a", "bad", make(chan int))
	if len(a.send) != 0 {
		t.Error("unencodable payload should not be queued")
	}
}
