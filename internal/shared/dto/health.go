package dto

// HealthResponse describes the payload returned by the /healthz endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Timestamp    string            `json:"timestamp"`
	ResponseTime string            `json:"responseTime"`
	Services     map[string]string `json:"services,omitempty"`
}
