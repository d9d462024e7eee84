package eventbus

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{ N int }

func TestPublishDispatchesByType(t *testing.T) {
	Use(New())
	defer Use(nil)

	var got []string
	unsubA := Subscribe(func(_ context.Context, e ping) { got = append(got, "a", string(rune('0'+e.N))) })
	unsubB := Subscribe(func(_ context.Context, e ping) { got = append(got, "b", string(rune('0'+e.N))) })
	Subscribe(func(_ context.Context, e pong) { got = append(got, "pong") })

	Publish(context.Background(), ping{N: 1})
	unsubA()
	Publish(context.Background(), ping{N: 2})
	unsubB()
	Publish(context.Background(), ping{N: 3})
	Publish(context.Background(), pong{})

	if diff := cmp.Diff([]string{"a", "1", "b", "1", "b", "2", "pong"}, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestWithoutBus(t *testing.T) {
	Use(nil)
	called := false
	unsub := Subscribe(func(context.Context, ping) { called = true })
	Publish(context.Background(), ping{})
	unsub()
	require.False(t, called)
}

func TestHandlerCanUnsubscribeDuringDispatch(t *testing.T) {
	Use(New())
	defer Use(nil)

	var calls int
	var unsub func()
	unsub = Subscribe(func(context.Context, ping) {
		calls++
		unsub()
	})
	Publish(context.Background(), ping{})
	Publish(context.Background(), ping{})
	require.Equal(t, 1, calls)
}
