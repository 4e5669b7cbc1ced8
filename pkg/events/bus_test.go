package events

import (
	"bytes"
	"testing"
)

func TestBusEmitToSession(t *testing.T) {
	bus := NewBus()
	sub := &Recorder{}
	bus.Subscribe("s1", sub)

	bus.Emit(Event{Type: EvPrint, Session: "s1", Line: 3, Text: "Hello world"})
	bus.Emit(Event{Type: EvPrint, Session: "s2", Text: "not for s1"})

	events := sub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Text != "Hello world" || events[0].Line != 3 {
		t.Errorf("got %+v", events[0])
	}
	if events[0].Type != EvPrint {
		t.Errorf("expected type EvPrint, got %v", events[0].Type)
	}
}

func TestBusGlobalSubscriber(t *testing.T) {
	bus := NewBus()
	global := &Recorder{}
	bus.SubscribeGlobal(global)

	bus.Emit(Event{Type: EvWrite, Session: "a", Text: "3\nwater", Data: map[string]any{"type": "xyz"}})

	events := global.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 global event, got %d", len(events))
	}
	if events[0].Data["type"] != "xyz" {
		t.Errorf("expected data type xyz, got %v", events[0].Data["type"])
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := &Recorder{}

	bus.Subscribe("s", sub)
	bus.Unsubscribe("s", sub)

	bus.Emit(Event{Type: EvText, Session: "s", Text: "should not arrive"})

	if len(sub.Events()) != 0 {
		t.Error("expected no events after unsubscribe")
	}
}

func TestBusClosedSubscriberSkipped(t *testing.T) {
	bus := NewBus()
	sub := &Recorder{}
	sub.Close()

	bus.Subscribe("s", sub)
	bus.Emit(Event{Type: EvText, Session: "s", Text: "no delivery"})

	if len(sub.Events()) != 0 {
		t.Error("closed subscriber should not receive events")
	}
}

func TestBusCleanup(t *testing.T) {
	bus := NewBus()
	active := &Recorder{}
	closed := &Recorder{}
	closed.Close()

	bus.Subscribe("s", active)
	bus.Subscribe("s", closed)
	gone := &Recorder{}
	gone.Close()
	bus.SubscribeGlobal(gone)

	bus.Cleanup()

	if bus.SessionSubscribers("s") != 1 {
		t.Errorf("expected 1 active subscriber, got %d", bus.SessionSubscribers("s"))
	}
}

func TestRecorderTextsFilter(t *testing.T) {
	bus := NewBus()
	rec := &Recorder{}
	bus.SubscribeGlobal(rec)
	bus.Emit(Event{Type: EvPrint, Text: "p"})
	bus.Emit(Event{Type: EvEcho, Text: "e"})
	bus.Printf("", "n=%d", 2)

	if got := rec.Texts(EvPrint, EvEcho); len(got) != 2 || got[0] != "p" || got[1] != "e" {
		t.Errorf("Texts(print, echo) = %q", got)
	}
	if got := rec.Texts(); len(got) != 3 || got[2] != "n=2" {
		t.Errorf("Texts() = %q", got)
	}
}

func TestWriterPrefixesErrors(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{W: &buf}
	w.Receive(Event{Type: EvPrint, Text: "ok"})
	w.Receive(Event{Type: EvError, Text: "bad"})
	if buf.String() != "ok\nERROR: bad\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EvText, "text"},
		{EvPrint, "print"},
		{EvWrite, "write"},
		{EvModelChange, "model_change"},
		{EventType(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
