package auth

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRevoke_and_IsRevoked(t *testing.T) {
	store := NewTokenRevocationStore(time.Minute)
	defer store.Close()

	store.Revoke("token-abc-123", time.Now().Add(time.Hour))
	if !store.IsRevoked("token-abc-123") {
		t.Error("expected token to be revoked")
	}
	if store.IsRevoked("unknown-jti") {
		t.Error("expected unknown JTI to not be revoked")
	}

	store.Revoke("", time.Now().Add(time.Hour))
	if store.Count() != 1 {
		t.Errorf("expected empty JTI to be ignored, count=%d", store.Count())
	}
}

func TestCleanup_RemovesExpiredEntries(t *testing.T) {
	store := NewTokenRevocationStore(time.Minute)
	defer store.Close()

	store.Revoke("expired-jti", time.Now().Add(-time.Second))
	store.Revoke("active-jti", time.Now().Add(time.Hour))

	store.cleanup()

	if store.IsRevoked("expired-jti") {
		t.Error("expected expired JTI to be cleaned up")
	}
	if !store.IsRevoked("active-jti") {
		t.Error("expected active JTI to remain")
	}
}

func TestCleanupLoop_Runs(t *testing.T) {
	store := NewTokenRevocationStore(5 * time.Millisecond)
	defer store.Close()

	store.Revoke("expired-jti", time.Now().Add(-time.Second))

	deadline := time.Now().Add(time.Second)
	for store.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.Count() != 0 {
		t.Error("expected background cleanup to drop the expired entry")
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewTokenRevocationStore(time.Minute)
	defer store.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		jti := fmt.Sprintf("jti-%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Revoke(jti, time.Now().Add(time.Hour))
		}()
		go func() {
			defer wg.Done()
			_ = store.IsRevoked(jti)
		}()
	}
	wg.Wait()

	if store.Count() != 100 {
		t.Errorf("expected 100 entries, got %d", store.Count())
	}
}

func TestClose_Idempotent(t *testing.T) {
	store := NewTokenRevocationStore(time.Minute)
	store.Close()
	store.Close()

	store.Revoke("jti-after-close", time.Now().Add(time.Hour))
	if !store.IsRevoked("jti-after-close") {
		t.Error("expected store to still work after Close")
	}
}
