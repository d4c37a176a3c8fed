package mqtt

import (
	"testing"

	"pgregory.net/rapid"
)

func msg(i int) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte{byte(i)}}
}

func retained(topic string, i int) bufferedMsg {
	return bufferedMsg{topic: topic, payload: []byte{byte(i)}, qos: 1, retained: true}
}

func payloads(msgs []bufferedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(4)
	got, dropped := o.drain()
	if got != nil || dropped != 0 {
		t.Errorf("expected nothing from empty drain, got %d items, %d dropped", len(got), dropped)
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(8)
	for i := 0; i < 5; i++ {
		if o.push(msg(i)) {
			t.Fatalf("push %d reported a drop", i)
		}
	}
	if o.len() != 5 {
		t.Fatalf("len: got %d, want 5", o.len())
	}

	got, _ := o.drain()
	if string(payloads(got)) != string([]byte{0, 1, 2, 3, 4}) {
		t.Errorf("order: got %v", payloads(got))
	}
	if o.len() != 0 {
		t.Error("outbox should be empty after drain")
	}
}

func TestOutboxOverflowDropsOldest(t *testing.T) {
	o := newOutbox(3)
	var drops []bool
	for i := 0; i < 6; i++ {
		drops = append(drops, o.push(msg(i)))
	}

	// Only the first drop is reported.
	want := []bool{false, false, false, true, false, false}
	for i := range want {
		if drops[i] != want[i] {
			t.Errorf("push %d: firstDrop got %v, want %v", i, drops[i], want[i])
		}
	}

	got, dropped := o.drain()
	if string(payloads(got)) != string([]byte{3, 4, 5}) {
		t.Errorf("kept: got %v, want [3 4 5]", payloads(got))
	}
	if dropped != 3 {
		t.Errorf("dropped: got %d, want 3", dropped)
	}

	// Drop reporting is re-armed by a drain.
	for i := 0; i < 3; i++ {
		o.push(msg(i))
	}
	if !o.push(msg(9)) {
		t.Error("expected first drop after drain to be reported")
	}
}

func TestOutboxRetainedSupersedes(t *testing.T) {
	o := newOutbox(8)
	// STARTUP, a hydration event, a heartbeat, then SHUTDOWN.
	o.push(retained(TopicSystem, 1))
	o.push(msg(2))
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte{3}, qos: 1})
	o.push(retained(TopicSystem, 4))

	got, dropped := o.drain()
	if string(payloads(got)) != string([]byte{2, 3, 4}) {
		t.Errorf("got %v, want [2 3 4]", payloads(got))
	}
	if dropped != 0 {
		t.Errorf("superseded messages are not drops, got %d", dropped)
	}
}

func TestOutboxRetainedPerTopic(t *testing.T) {
	o := newOutbox(8)
	o.push(retained(TopicSystem, 1))
	o.push(retained(Topic, 2))
	o.push(retained(TopicSystem, 3))

	got, _ := o.drain()
	if string(payloads(got)) != string([]byte{2, 3}) {
		t.Errorf("got %v, want [2 3]", payloads(got))
	}
}

func TestOutboxMinimumCapacity(t *testing.T) {
	o := newOutbox(0)
	o.push(msg(1))
	o.push(msg(2))
	got, dropped := o.drain()
	if len(got) != 1 || got[0].payload[0] != 2 || dropped != 1 {
		t.Errorf("expected only the newest message, got %v (dropped %d)", payloads(got), dropped)
	}
}

func TestOutboxKeepsNewestProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(t, "capacity")
		n := rapid.IntRange(0, 64).Draw(t, "pushes")

		o := newOutbox(capacity)
		for i := 0; i < n; i++ {
			o.push(msg(i))
		}

		got, dropped := o.drain()
		wantLen := min(n, capacity)
		if len(got) != wantLen || dropped != n-wantLen {
			t.Fatalf("len %d dropped %d, want %d and %d", len(got), dropped, wantLen, n-wantLen)
		}
		for i, m := range got {
			if want := byte(n - wantLen + i); m.payload[0] != want {
				t.Fatalf("item %d: got %d, want %d", i, m.payload[0], want)
			}
		}
	})
}

func TestOutboxAtMostOneRetainedPerTopicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := newOutbox(rapid.IntRange(1, 16).Draw(t, "capacity"))
		n := rapid.IntRange(0, 64).Draw(t, "pushes")
		for i := 0; i < n; i++ {
			topic := rapid.SampledFrom([]string{Topic, TopicSystem}).Draw(t, "topic")
			keep := rapid.Bool().Draw(t, "retained")
			o.push(bufferedMsg{topic: topic, payload: []byte{byte(i)}, retained: keep})
		}

		got, _ := o.drain()
		seen := map[string]bool{}
		for _, m := range got {
			if !m.retained {
				continue
			}
			if seen[m.topic] {
				t.Fatalf("two retained messages queued for %s", m.topic)
			}
			seen[m.topic] = true
		}
	})
}
