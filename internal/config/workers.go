package config

import "time"

// WorkerConfig holds report worker pool configuration
type WorkerConfig struct {
	Workers     int           `mapstructure:"REPORT_WORKERS"`
	QueueSize   int           `mapstructure:"REPORT_QUEUE_SIZE"`
	TaskTimeout time.Duration `mapstructure:"REPORT_TASK_TIMEOUT"`
}

// DefaultWorkerConfig returns the default worker pool configuration
func DefaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		Workers:     4,
		QueueSize:   64,
		TaskTimeout: 5 * time.Minute,
	}
}

// SchedulerConfig holds cron job configuration
type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"SCHEDULER_ENABLED"`
	Timezone    string `mapstructure:"SCHEDULER_TIMEZONE"`
	PublishSpec string `mapstructure:"SCHEDULER_PUBLISH_SPEC"`
	MetricsSpec string `mapstructure:"SCHEDULER_METRICS_SPEC"`
}

// DefaultSchedulerConfig returns the default scheduler configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Enabled:     true,
		Timezone:    "UTC",
		PublishSpec: "@every 1m",
		MetricsSpec: "@every 1h",
	}
}
