package shared

// NATS subject and stream names for the Alert Bus (spec.md §4.6), adapted
// from the teacher's constellation.* subject tree in pkg/shared/subjects.go.
const (
	SubjectAlerts    = "overwatch.alerts"
	SubjectAlertsAll = "overwatch.alerts.>"

	StreamAlerts        = "OVERWATCH_ALERTS"
	ConsumerAlertFanout = "alert-fanout"
)
