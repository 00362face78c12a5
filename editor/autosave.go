package editor

import (
	"sync"
	"time"
)

// autoSaver runs save once after delay. While a run is pending further
// schedules are folded into it.
type autoSaver struct {
	mu      sync.Mutex
	delay   time.Duration
	save    func()
	timer   *time.Timer
	pending bool
	stopped bool
	running sync.WaitGroup
}

func newAutoSaver(delay time.Duration, save func()) *autoSaver {
	return &autoSaver{delay: delay, save: save}
}

func (a *autoSaver) schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending || a.stopped {
		return
	}
	a.pending = true
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *autoSaver) fire() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.running.Add(1)
	a.mu.Unlock()
	defer a.running.Done()
	a.save()
}

func (a *autoSaver) isPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// stop cancels a pending run and waits for one already saving.
func (a *autoSaver) stop() {
	a.mu.Lock()
	a.stopped = true
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	a.running.Wait()
}
