package api

import "time"

// ProfileResponse is the public JSON view of a profile
type ProfileResponse struct {
	CreatedAt    time.Time `json:"createdAt"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	ProfileViews int64     `json:"profileViews"`
}

// HealthResponse answers GET /api/v1/health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
