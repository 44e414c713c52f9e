package pipeline

import (
	"context"
	"time"

	"catalogscan/internal/config"
)

// EnumPolicy decides the fate of records whose classification values are
// outside the vocabulary.
type EnumPolicy string

const (
	// EnumPolicyReview commits the record with status "review".
	EnumPolicyReview EnumPolicy = config.EnumPolicyReview
	// EnumPolicyReject fails the item and leaves it pending.
	EnumPolicyReject EnumPolicy = config.EnumPolicyReject
)

const (
	defaultRetryMaxBackoff = 60 * time.Second
)

// Config holds the orchestrator's policy. The zero value processes every
// pending item with a single inference attempt and the review policy.
type Config struct {
	// InferenceAttempts is the total number of tries per item for retryable
	// inference errors.
	InferenceAttempts int
	RetryBackoff      time.Duration
	RetryMaxBackoff   time.Duration
	EnumPolicy        EnumPolicy
	// Limit caps how many pending items one run processes (0 = all).
	Limit int

	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// ConfigFrom maps loaded settings onto the orchestrator config.
func ConfigFrom(cfg *config.Config) Config {
	policy := EnumPolicyReview
	if cfg.EnumPolicyReject() {
		policy = EnumPolicyReject
	}
	return Config{
		InferenceAttempts: cfg.Pipeline.InferenceAttempts,
		RetryBackoff:      time.Duration(cfg.Pipeline.RetryBackoffSeconds) * time.Second,
		EnumPolicy:        policy,
		Limit:             cfg.Pipeline.Limit,
	}
}

func (c Config) withDefaults() Config {
	if c.InferenceAttempts <= 0 {
		c.InferenceAttempts = 1
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.RetryMaxBackoff <= 0 {
		c.RetryMaxBackoff = defaultRetryMaxBackoff
	}
	if c.EnumPolicy != EnumPolicyReject {
		c.EnumPolicy = EnumPolicyReview
	}
	if c.Limit < 0 {
		c.Limit = 0
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	return c
}
