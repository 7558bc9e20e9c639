package cvat

import (
	"errors"
	"os"
)

// DefaultHost is used when CVAT_HOST is not set.
const DefaultHost = "https://app.cvat.ai/"

// Organization is the tenant all tasks are created under. Fixed by policy.
const Organization = "Kiva"

// Config holds connection parameters for the annotation service.
type Config struct {
	Host     string
	Username string
	Password string
	// Organization slug sent with every request; defaults to Organization.
	Org string
}

// FromEnv loads credentials from CVAT_HOST, CVAT_USERNAME and CVAT_PASSWORD.
func FromEnv() Config {
	return Config{
		Host:     getenv("CVAT_HOST", DefaultHost),
		Username: os.Getenv("CVAT_USERNAME"),
		Password: os.Getenv("CVAT_PASSWORD"),
		Org:      Organization,
	}
}

// Validate checks that the config can authenticate at all.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("cvat: host not set")
	}
	if c.Username == "" || c.Password == "" {
		return errors.New("cvat: CVAT_USERNAME and CVAT_PASSWORD must be set")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
