// internal/workers/advisor/refresh-directory/config.go
package refreshdirectory

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 120 * time.Second,
	}
}
