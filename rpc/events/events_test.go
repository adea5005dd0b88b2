package events

import "testing"

func TestBusEmitDropsWhenFull(t *testing.T) {
	bus := NewBus(1, 1)

	bus.Emit(ReadyForInteraction{})
	bus.Emit(AccountAdded{Address: "dropped"}) // buffer full, should not block or panic

	ev := <-bus.Outbound()
	if _, ok := ev.(ReadyForInteraction); !ok {
		t.Fatalf("expected ReadyForInteraction, got %T", ev)
	}
}

func TestBusInboundRoundTrip(t *testing.T) {
	bus := NewBus(1, 0)
	bus.Inbound <- AddAccountRequest{WIF: "x", Address: "y"}

	ev := <-bus.Inbound
	req, ok := ev.(AddAccountRequest)
	if !ok || req.WIF != "x" || req.Address != "y" {
		t.Fatalf("round trip mismatch: %#v", ev)
	}
}
