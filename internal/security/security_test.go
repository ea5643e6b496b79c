package security

import (
	"testing"
	"time"
)

func TestHashSessionToken(t *testing.T) {
	token := GenerateSessionToken()
	hash := HashSessionToken(token)

	if hash == token {
		t.Error("hash equals raw token")
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64 hex characters", len(hash))
	}
	if HashSessionToken(token) != hash {
		t.Error("hashing is not deterministic")
	}
	if HashSessionToken(GenerateSessionToken()) == hash {
		t.Error("distinct tokens hashed equal")
	}
}

func TestRequesterKey(t *testing.T) {
	key := RequesterKey("203.0.113.9", "abcdef0123456789")
	if key != "203.0.113.9/abcdef01" {
		t.Errorf("RequesterKey = %q", key)
	}

	short := RequesterKey("203.0.113.9", "ab")
	if short != "203.0.113.9/ab" {
		t.Errorf("RequesterKey with short hash = %q", short)
	}
}

func TestRateLimiter(t *testing.T) {
	store := &MemoryAttemptStore{buckets: make(map[string]*bucket), now: time.Now}
	limiter := NewRateLimiter(store, 3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("guest-1")
		if !allowed {
			t.Fatalf("attempt %d denied, want allowed", i+1)
		}
	}

	allowed, retryAfter := limiter.Allow("guest-1")
	if allowed {
		t.Fatal("fourth attempt allowed, want denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("retryAfter = %v, want in (0, 1m]", retryAfter)
	}

	// A different requester key has its own bucket.
	if allowed, _ := limiter.Allow("guest-2"); !allowed {
		t.Error("separate key denied")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	current := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	store := &MemoryAttemptStore{
		buckets: make(map[string]*bucket),
		now:     func() time.Time { return current },
	}
	limiter := NewRateLimiter(store, 1, time.Minute)

	if allowed, _ := limiter.Allow("k"); !allowed {
		t.Fatal("first attempt denied")
	}
	if allowed, _ := limiter.Allow("k"); allowed {
		t.Fatal("second attempt within window allowed")
	}

	current = current.Add(61 * time.Second)
	if allowed, _ := limiter.Allow("k"); !allowed {
		t.Error("attempt after refill denied")
	}
}

func TestBypassSecret(t *testing.T) {
	hash, err := HashBypassSecret("table-seven")
	if err != nil {
		t.Fatalf("HashBypassSecret: %v", err)
	}

	if !CheckBypassSecret("table-seven", hash) {
		t.Error("correct secret rejected")
	}
	if CheckBypassSecret("table-eight", hash) {
		t.Error("wrong secret accepted")
	}
	if CheckBypassSecret("", hash) {
		t.Error("empty secret accepted")
	}
	if CheckBypassSecret("table-seven", "") {
		t.Error("empty hash accepted")
	}
}
