package dashboard

import (
	"context"
	"testing"
	"time"
)

func TestReadEscapeKeyTranslatesArrowsToScrollKeys(t *testing.T) {
	cases := []struct {
		name string
		seq  []byte
		want byte
	}{
		{"up arrow becomes k", []byte{'[', 'A'}, 'k'},
		{"down arrow becomes j", []byte{'[', 'B'}, 'j'},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &Dashboard{}
			raw := make(chan byte, len(tc.seq))
			for _, b := range tc.seq {
				raw <- b
			}
			msgs := make(chan message, 1)

			d.readEscapeKey(context.Background(), raw, msgs)

			select {
			case m := <-msgs:
				if m.key != tc.want {
					t.Fatalf("got key %q, want %q", m.key, tc.want)
				}
			default:
				t.Fatal("expected a translated key message")
			}
		})
	}
}

func TestReadEscapeKeyDropsUnrecognizedSequence(t *testing.T) {
	d := &Dashboard{}
	raw := make(chan byte, 2)
	raw <- '['
	raw <- 'Z'
	msgs := make(chan message, 1)

	d.readEscapeKey(context.Background(), raw, msgs)

	select {
	case m := <-msgs:
		t.Fatalf("expected no message for an unrecognized sequence, got %+v", m)
	default:
	}
}

func TestReadEscapeKeyDoesNotLeakLiteralBracketBinding(t *testing.T) {
	// A bare ESC with no follow-up byte within the timeout must be swallowed,
	// so nothing (in particular no '[' session-switch key) reaches handleKey.
	d := &Dashboard{}
	raw := make(chan byte)
	msgs := make(chan message, 1)

	done := make(chan struct{})
	go func() {
		d.readEscapeKey(context.Background(), raw, msgs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("readEscapeKey did not return on a bare ESC within its timeout")
	}

	select {
	case m := <-msgs:
		t.Fatalf("expected no message for a bare ESC, got %+v", m)
	default:
	}
}
