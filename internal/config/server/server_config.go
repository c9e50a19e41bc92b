package server

import "time"

type ServerConfig struct {
	Host string `json:"host" env:"PANTRYCHEF_HOST"`
	Port int    `json:"port" env:"PORT,PANTRYCHEF_PORT"`

	// RequestTimeout bounds one /chat request, e.g. "9m".
	RequestTimeout string `json:"requestTimeout" env:"PANTRYCHEF_REQUEST_TIMEOUT"`

	// AllowedOrigins for /chat/ws; empty allows any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" env:"PANTRYCHEF_ALLOWED_ORIGINS"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{Host: "0.0.0.0", Port: 8080, RequestTimeout: "9m"}
}

// Timeout parses RequestTimeout, falling back to nine minutes.
func (c ServerConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 9 * time.Minute
	}
	return d
}
