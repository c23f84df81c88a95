package webui

import (
	"testing"
	"time"
)

func TestSessionStoreKeepsTranscriptsPerDestination(t *testing.T) {
	store := NewSessionStore()

	store.Append("session-1", 1, Message{Text: "hello", IsUser: true})
	store.Append("session-1", 2, Message{Text: "other destination"})

	transcript := store.Transcript("session-1", 1)
	if len(transcript) != 1 || transcript[0].Text != "hello" {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}
	if len(store.Transcript("session-1", 2)) != 1 {
		t.Fatal("expected independent transcript for second destination")
	}
}

func TestSessionStoreIsolatesSessions(t *testing.T) {
	store := NewSessionStore()

	store.Append("session-1", 1, Message{Text: "mine", IsUser: true})

	if transcript := store.Transcript("session-2", 1); len(transcript) != 0 {
		t.Fatalf("expected empty transcript for other session, got %+v", transcript)
	}
}

func TestSessionStoreClearDropsOneDestination(t *testing.T) {
	store := NewSessionStore()

	store.Append("session-1", 1, Message{Text: "first"})
	store.Append("session-1", 2, Message{Text: "second"})
	store.Clear("session-1", 1)

	if len(store.Transcript("session-1", 1)) != 0 {
		t.Fatal("expected cleared transcript")
	}
	if len(store.Transcript("session-1", 2)) != 1 {
		t.Fatal("clear must not touch other destinations")
	}
}

func TestSessionStoreDropRemovesDestinationEverywhere(t *testing.T) {
	store := NewSessionStore()

	store.Append("session-1", 1, Message{Text: "a"})
	store.Append("session-2", 1, Message{Text: "b"})
	store.Drop(1)

	if len(store.Transcript("session-1", 1)) != 0 || len(store.Transcript("session-2", 1)) != 0 {
		t.Fatal("expected transcripts dropped for every session")
	}
}

func TestSessionStoreExpiresIdleSessions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := newSessionStore(time.Hour, func() time.Time { return now })

	store.Append("session-1", 1, Message{Text: "hello"})

	now = now.Add(2 * time.Hour)
	if transcript := store.Transcript("session-1", 1); len(transcript) != 0 {
		t.Fatalf("expected expired session to start empty, got %+v", transcript)
	}
}

func TestSessionStoreTranscriptReturnsCopy(t *testing.T) {
	store := NewSessionStore()

	store.Append("session-1", 1, Message{Text: "original"})
	transcript := store.Transcript("session-1", 1)
	transcript[0].Text = "mutated"

	if store.Transcript("session-1", 1)[0].Text != "original" {
		t.Fatal("transcript copies must not alias the stored messages")
	}
}
