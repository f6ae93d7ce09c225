package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/etherpipe/internal/ether"
	"github.com/GriffinCanCode/etherpipe/internal/trunk"
)

var (
	ErrInvalidConfig  = errors.New("invalid pipeline configuration")
	ErrQuotaMismatch  = errors.New("trunk quotas do not add up to ether capacity")
	ErrInitialization = errors.New("pipeline initialization failed")
)

// Config describes the topology of one pipeline run.
type Config struct {
	QueueCapacity int
	Ether         ether.Config
	Trunks        []trunk.Config
}

// DefaultConfig returns the reference topology: a queue of 32 slots, one
// Ether generating 24 items and four Trunks of quota 6 with increasing delays.
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 32,
		Ether:         ether.Config{ID: 1, Capacity: 24},
		Trunks: []trunk.Config{
			{ID: 1, Quota: 6, Delay: 50 * time.Millisecond},
			{ID: 2, Quota: 6, Delay: 100 * time.Millisecond},
			{ID: 3, Quota: 6, Delay: 400 * time.Millisecond},
			{ID: 4, Quota: 6, Delay: 800 * time.Millisecond},
		},
	}
}

// TotalQuota returns the number of items the Trunks will consume.
func (c Config) TotalQuota() int {
	total := 0
	for _, t := range c.Trunks {
		total += t.Quota
	}
	return total
}

// Validate checks the configuration, including the quota balance.
func (c Config) Validate() error {
	return c.validate(true)
}

func (c Config) validate(checkQuota bool) error {
	if c.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue capacity %d", ErrInvalidConfig, c.QueueCapacity)
	}
	if c.Ether.Capacity < 1 {
		return fmt.Errorf("%w: ether capacity %d", ErrInvalidConfig, c.Ether.Capacity)
	}
	if c.Ether.Delay < 0 {
		return fmt.Errorf("%w: negative ether delay", ErrInvalidConfig)
	}
	if len(c.Trunks) == 0 {
		return fmt.Errorf("%w: no trunks configured", ErrInvalidConfig)
	}

	seen := make(map[int]bool, len(c.Trunks))
	for _, t := range c.Trunks {
		if t.Quota < 1 {
			return fmt.Errorf("%w: trunk %d quota %d", ErrInvalidConfig, t.ID, t.Quota)
		}
		if t.Delay < 0 {
			return fmt.Errorf("%w: trunk %d has a negative delay", ErrInvalidConfig, t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate trunk id %d", ErrInvalidConfig, t.ID)
		}
		seen[t.ID] = true
	}

	if checkQuota && c.TotalQuota() != c.Ether.Capacity {
		return fmt.Errorf("%w: trunks consume %d, ether generates %d", ErrQuotaMismatch, c.TotalQuota(), c.Ether.Capacity)
	}
	return nil
}
