package util

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveTemplate(t *testing.T) {
	data := map[string]any{
		"name": "Ana",
		"age":  30,
		"address": map[string]any{
			"city": "Lisbon",
		},
	}
	for scenario, tc := range map[string]struct {
		template string
		expected string
	}{
		"plain":      {template: "hello", expected: "hello"},
		"simple":     {template: "hi {$.name}", expected: "hi Ana"},
		"nested":     {template: "from {$.address.city}", expected: "from Lisbon"},
		"number":     {template: "{$.age} years", expected: "30 years"},
		"repeated":   {template: "{$.name} {$.name}", expected: "Ana Ana"},
		"unresolved": {template: "hi {$.missing}", expected: "hi {$.missing}"},
		"not a path": {template: "{not a path}", expected: "{not a path}"},
	} {
		t.Run(scenario, func(t *testing.T) {
			require.Equal(t, tc.expected, ResolveTemplate(data, tc.template))
		})
	}
	require.Equal(t, "hi {$.name}", ResolveTemplate(nil, "hi {$.name}"))
}

func TestStructuralHash(t *testing.T) {
	type shape struct {
		Name  string
		Items []string
		Attrs map[string]any
	}
	a := shape{Name: "x", Items: []string{"1", "2"}, Attrs: map[string]any{"b": 1, "a": 2}}
	b := shape{Name: "x", Items: []string{"1", "2"}, Attrs: map[string]any{"a": 2, "b": 1}}
	c := shape{Name: "x", Items: []string{"2", "1"}, Attrs: map[string]any{"a": 2, "b": 1}}

	ha, err := StructuralHash(a)
	require.NoError(t, err)
	hb, err := StructuralHash(b)
	require.NoError(t, err)
	hc, err := StructuralHash(c)
	require.NoError(t, err)
	require.Equal(t, ha, hb)
	require.NotEqual(t, ha, hc)

	_, err = StructuralHash(make(chan int))
	require.Error(t, err)
}

func TestTickWorker(t *testing.T) {
	var wg sync.WaitGroup
	var ticks int32
	tw := NewTickWorker("test", 10*time.Millisecond, func() {
		atomic.AddInt32(&ticks, 1)
	}, &wg)
	tw.Start()
	tw.Start()
	require.True(t, tw.IsRunning())
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&ticks) >= 2
	}, time.Second, 5*time.Millisecond)
	tw.Stop()
	tw.Stop()
	wg.Wait()
	require.False(t, tw.IsRunning())
}

func TestWorker(t *testing.T) {
	var wg sync.WaitGroup
	done := make(chan Task, 1)
	w := NewWorker("test", &wg, func(task Task) error {
		done <- task
		return nil
	}, 1)
	w.Start()
	w.Sender() <- "job"
	select {
	case got := <-done:
		require.Equal(t, "job", got)
	case <-time.After(time.Second):
		t.Fatal("task was not handled")
	}
	w.Stop()
	wg.Wait()
}

func TestWorkerTrySendWhenFull(t *testing.T) {
	var wg sync.WaitGroup
	w := NewWorker("full", &wg, func(task Task) error { return nil }, 1)
	require.True(t, w.TrySend("first"))
	require.False(t, w.TrySend("second"))
}

func TestNewId(t *testing.T) {
	require.NotEqual(t, NewId(), NewId())
	require.Len(t, NewId(), 36)
}

type sample struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Tags  map[string]any `json:"tags,omitempty"`
}

func TestYamlEncoderDecoder(t *testing.T) {
	encdec := NewYamlEncoderDecoder[sample]()
	data, err := encdec.Encode(sample{Name: "promo", Count: 3, Tags: map[string]any{"vip": true}})
	require.NoError(t, err)
	require.Contains(t, string(data), "name: promo")

	decoded, err := encdec.Decode(data)
	require.NoError(t, err)
	require.Equal(t, "promo", decoded.Name)
	require.Equal(t, 3, decoded.Count)
	require.Equal(t, true, decoded.Tags["vip"])

	_, err = encdec.Decode([]byte("- just\n- a list\n"))
	require.Error(t, err)
}
