package keylock

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := New()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock(42)
			counter++
			k.Unlock(42)
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("expected 100 increments, got %d", counter)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := New()

	k.Lock(1)
	done := make(chan struct{})
	go func() {
		k.Lock(2)
		k.Unlock(2)
		close(done)
	}()
	<-done
	k.Unlock(1)
}

func TestKeyedMutexCleansUpEntries(t *testing.T) {
	k := New()

	k.Lock(7)
	k.Unlock(7)

	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.entries) != 0 {
		t.Errorf("expected empty entry map, got %d entries", len(k.entries))
	}
}

func TestKeyedMutexUnlockUnheldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on unlock of unheld key")
		}
	}()
	New().Unlock(99)
}
