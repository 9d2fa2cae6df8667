package config

// MetricsConfig selects the observability sinks.
type MetricsConfig struct {
	// PrometheusPort exposes /metrics on this port when non-empty.
	PrometheusPort string `json:"prometheus_port"`
	// Influx settings are optional; an unreachable instance degrades to
	// a no-op sink at startup.
	InfluxURL    string `json:"influx_url"`
	InfluxToken  string `json:"influx_token"`
	InfluxOrg    string `json:"influx_org"`
	InfluxBucket string `json:"influx_bucket"`
}
