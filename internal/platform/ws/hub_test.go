package ws

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		UserID: userID,
		Send:   make(chan []byte, 256),
		hub:    hub,
	}
}

func TestHub_RegisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()

	hub.Register(newTestClient(hub, userID))

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if !hub.IsOnline(userID) {
		t.Fatal("expected user to be online")
	}
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()
	client := newTestClient(hub, userID)

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.IsOnline(userID) {
		t.Fatal("expected user to be offline")
	}
}

func TestHub_UnregisterTwiceIsSafe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(hub, uuid.New())

	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client) // must not panic on closed Send channel
}

func TestHub_SendToUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()
	otherID := uuid.New()

	recipient := newTestClient(hub, userID)
	bystander := newTestClient(hub, otherID)
	hub.Register(recipient)
	hub.Register(bystander)

	if !hub.SendToUser(userID, []byte(`{"hello":true}`)) {
		t.Fatal("expected delivery to succeed")
	}

	select {
	case msg := <-recipient.Send:
		if string(msg) != `{"hello":true}` {
			t.Fatalf("unexpected payload: %s", msg)
		}
	default:
		t.Fatal("expected payload on recipient channel")
	}

	select {
	case msg := <-bystander.Send:
		t.Fatalf("bystander should not receive payload, got: %s", msg)
	default:
	}
}

func TestHub_SendToUser_MultipleConnections(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()

	phone := newTestClient(hub, userID)
	laptop := newTestClient(hub, userID)
	hub.Register(phone)
	hub.Register(laptop)

	hub.SendToUser(userID, []byte("ping"))

	for _, client := range []*Client{phone, laptop} {
		select {
		case <-client.Send:
		default:
			t.Fatal("expected payload on every connection of the user")
		}
	}
}

func TestHub_SendToUser_Offline(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if hub.SendToUser(uuid.New(), []byte("ping")) {
		t.Fatal("expected delivery to an offline user to report false")
	}
}

func TestHub_SendToUser_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()

	client := &Client{
		UserID: userID,
		Send:   make(chan []byte), // unbuffered, nobody reading
		hub:    hub,
	}
	hub.Register(client)

	// A blocked send would hang the test.
	if hub.SendToUser(userID, []byte("ping")) {
		t.Fatal("expected delivery with no reader to report false")
	}
}

func TestHub_SendJSON(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()
	client := newTestClient(hub, userID)
	hub.Register(client)

	hub.SendJSON(userID, map[string]string{"type": "offer"})

	msg := <-client.Send
	var decoded map[string]string
	if err := json.Unmarshal(msg, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["type"] != "offer" {
		t.Fatalf("unexpected payload: %v", decoded)
	}
}
