package jobqueue

import (
	"os"
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds the tunable parameters for the artifact queue.
type QueueConfig struct {
	// MaxWorkers is the number of concurrent workers. Artifact writes are
	// small inserts, so a handful is plenty.
	MaxWorkers int

	// MaxRetries caps retry attempts per job. Artifact rows lose their
	// value quickly, so there is no point retrying for days.
	MaxRetries int

	// JobTimeout bounds a single write.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the standard configuration.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 5,
		MaxRetries: 10,
		JobTimeout: 30 * time.Second,
	}
}

// DevelopmentQueueConfig fails faster and uses fewer workers.
func DevelopmentQueueConfig() *QueueConfig {
	config := DefaultQueueConfig()
	config.MaxWorkers = 2
	config.MaxRetries = 3
	return config
}

// GetQueueConfig picks the configuration for the current environment.
func GetQueueConfig() *QueueConfig {
	if os.Getenv("APPFORGE_ENV") == "development" {
		return DevelopmentQueueConfig()
	}
	return DefaultQueueConfig()
}

// RiverQueueConfig converts the config to River's queue configuration format.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
