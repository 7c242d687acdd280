// Package shared holds the wire types exchanged between the api package and
// the internal pipeline/store packages — the teacher's pattern of keeping a
// response envelope and domain types in one shared package.
package shared

import "time"

// Response is the API envelope, adapted from the teacher's shared.Response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthStatus mirrors the teacher's health check payload.
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// TrajectoryPoint is the wire form of a predicted-position sample
// (spec.md §6: "[lat, lon, t_seconds]").
type TrajectoryPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	T   int     `json:"t_seconds"`
}

// TelemetryRequest is the ingest input (spec.md §6).
type TelemetryRequest struct {
	TransponderID *string `json:"transponder_id"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Altitude      float64 `json:"altitude"`
	Groundspeed   float64 `json:"groundspeed"`
	Track         float64 `json:"track"`
}

// Flight is the track record (spec.md §3, §6): input fields plus the
// derived attributes the pipeline attaches.
type Flight struct {
	ID                  int64             `json:"id"`
	TransponderID       *string           `json:"transponder_id"`
	Timestamp           time.Time         `json:"timestamp"`
	Latitude            float64           `json:"latitude"`
	Longitude           float64           `json:"longitude"`
	Altitude            float64           `json:"altitude"`
	Groundspeed         float64           `json:"groundspeed"`
	Track               float64           `json:"track"`
	Classification      string            `json:"classification"`
	AircraftModel       string            `json:"aircraft_model"`
	ThreatLevel         string            `json:"threat_level"`
	ThreatScore         int               `json:"threat_score"`
	DetectionConfidence float64           `json:"detection_confidence"`
	SignalStrength      float64           `json:"signal_strength"`
	WeatherCondition    string            `json:"weather_condition"`
	InRestrictedArea    bool              `json:"in_restricted_area"`
	Allowlisted         bool              `json:"allowlisted"`
	PredictedTrajectory []TrajectoryPoint `json:"predicted_trajectory"`
}

// IsUnidentified reports spec.md §6's rule: a missing transponder_id or the
// literal string "UNKNOWN" marks the track as unidentified.
func (f *Flight) IsUnidentified() bool {
	return f.TransponderID == nil || *f.TransponderID == "" || *f.TransponderID == "UNKNOWN"
}

// Region is a restricted region row (spec.md §3).
type Region struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	PolygonJSON string    `json:"polygon_json"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateRegionRequest struct {
	Name        string `json:"name"`
	PolygonJSON string `json:"polygon_json"`
}

// Alert is the alert record (spec.md §3, §6).
type Alert struct {
	ID                int64      `json:"id"`
	FlightID          int64      `json:"flight_id"`
	TransponderID     *string    `json:"transponder_id"`
	RegionID          int64      `json:"region_id"`
	Severity          string     `json:"severity"`
	Message           string     `json:"message"`
	ThreatReasons     []string   `json:"threat_reasons"`
	RecommendedAction string     `json:"recommended_action"`
	Resolved          bool       `json:"resolved"`
	ResolvedBy        *int64     `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastSeenAt        time.Time  `json:"last_seen_at"`
}

// Operator is an account row (spec.md §3).
type Operator struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

type RegisterOperatorRequest struct {
	Email      string `json:"email"`
	Credential string `json:"credential"`
	Role       string `json:"role"`
}

type AuthenticateRequest struct {
	Email      string `json:"email"`
	Credential string `json:"credential"`
}

type AuthenticateResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// PushEvent is the wire envelope for the push channel (spec.md §6).
type PushEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	EventTypeAlert         = "alert"
	EventTypeAlertResolved = "alert_resolved"
	EventTypeTrackUpdate   = "track_update"
)

// AllowlistEntry is the supplemented feature from SPEC_FULL.md §C.2/§C.5.
type AllowlistEntry struct {
	ID            int64     `json:"id"`
	TransponderID string    `json:"transponder_id"`
	Description   string    `json:"description"`
	AddedAt       time.Time `json:"added_at"`
}
