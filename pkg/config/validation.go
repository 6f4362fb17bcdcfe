package config

import (
	"fmt"
	"regexp"
)

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate dispatch config
	if cfg.Dispatch.HistoryLimit <= 0 {
		return fmt.Errorf("dispatch.history_limit must be positive")
	}
	if cfg.Dispatch.DisplayTTL <= 0 {
		return fmt.Errorf("dispatch.display_ttl must be positive")
	}
	if cfg.Dispatch.StatusPosts <= 0 {
		return fmt.Errorf("dispatch.status_posts must be positive")
	}

	// Validate web config
	if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
		return fmt.Errorf("web.port must be between 1 and 65535")
	}

	// Validate directions config
	if cfg.Directions.Enabled {
		if cfg.Directions.TimeoutSeconds <= 0 {
			return fmt.Errorf("directions.timeout_seconds must be positive")
		}
		if cfg.Directions.DistanceCeiling <= 0 {
			return fmt.Errorf("directions.distance_ceiling must be positive")
		}
	}

	// Validate archive config
	if cfg.Archive.RetentionDays < 0 {
		return fmt.Errorf("archive.retention_days must not be negative")
	}

	// Validate stations
	seen := make(map[string]bool)
	for i, st := range cfg.Stations {
		if st.ID == "" {
			return fmt.Errorf("station %d: id is required", i)
		}
		if seen[st.ID] {
			return fmt.Errorf("station %s: duplicate id", st.ID)
		}
		seen[st.ID] = true

		if st.Area == "" {
			return fmt.Errorf("station %s: area is required", st.ID)
		}
		if st.IPMatch == "" {
			return fmt.Errorf("station %s: ip_match is required", st.ID)
		}
		if _, err := regexp.Compile(st.IPMatch); err != nil {
			return fmt.Errorf("station %s: invalid ip_match pattern: %w", st.ID, err)
		}
		if st.Lat < -90 || st.Lat > 90 {
			return fmt.Errorf("station %s: lat must be between -90 and 90", st.ID)
		}
		if st.Lng < -180 || st.Lng > 180 {
			return fmt.Errorf("station %s: lng must be between -180 and 180", st.ID)
		}
	}

	// Validate metrics config
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
	}

	return nil
}
