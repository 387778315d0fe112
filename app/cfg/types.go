package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// Platform credentials
	XBearerToken  string
	YouTubeAPIKey string

	// Sources
	SourcesFile    string
	RequestTimeout int
	UserAgent      string

	// Run driver
	RunInterval int
	RunRetries  int
	RetryDelay  int
	RunOnce     bool
	RunTimeout  int

	// Surfaces
	Port          string
	APIAccessKey  string
	RedisAddr     string
	RedisPassword string
	NatsURL       string
	NatsSubject   string
	OtelEndpoint  string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

func (c *Cfg) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c *Cfg) RunIntervalDuration() time.Duration {
	return time.Duration(c.RunInterval) * time.Second
}

func (c *Cfg) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

func (c *Cfg) RunTimeoutDuration() time.Duration {
	return time.Duration(c.RunTimeout) * time.Second
}
