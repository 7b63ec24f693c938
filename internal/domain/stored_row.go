package domain

import "time"

// StoredRow is one row of the project row store.
// Corresponds to the sales_rows table.
type StoredRow struct {
	RowID      string         // deterministic hash, see idhash
	ProjectID  string         // opaque project scope
	Source     string         // upload file name or "forecast"
	Origin     RecordOrigin   // observed or forecast
	Payload    map[string]any // JSON blob of the original row
	UploadedAt time.Time      // write time, read order key
}

// IsPredicted reports whether the row was written by a forecast run.
// Legacy rows without an origin are recognized by their payload marker.
func (r *StoredRow) IsPredicted() bool {
	if r.Origin == OriginPredicted {
		return true
	}
	if r.Payload == nil {
		return false
	}
	if v, ok := r.Payload[PayloadOriginKey].(string); ok && v == string(OriginPredicted) {
		return true
	}
	if v, ok := r.Payload["name"].(string); ok && v == ForecastMarkerLabel {
		return true
	}
	return false
}

// PayloadOriginKey is the payload key mirroring the origin column.
const PayloadOriginKey = "_origin"

// ForecastRun is the archived outcome of one successful project run.
// Corresponds to the forecast_runs table in ClickHouse.
type ForecastRun struct {
	RunID          string
	ProjectID      string
	GeneratedAt    time.Time
	TrainingPoints int
	LastTrainDate  time.Time
	Summary        Summary
	Forecast       []ForecastPoint
}
