package domain

// RecordOrigin tags a persisted row as genuine sales data or a machine-generated forecast.
type RecordOrigin string

const (
	OriginObserved  RecordOrigin = "observed"
	OriginPredicted RecordOrigin = "forecast"
)

// ForecastMarkerLabel is the payload "name" value written on every forecast row.
// Rows persisted before the origin column existed carry only this label.
const ForecastMarkerLabel = "예측데이터"

// String returns the string representation of RecordOrigin.
func (o RecordOrigin) String() string {
	return string(o)
}

// IsValid checks if the origin is a valid value.
func (o RecordOrigin) IsValid() bool {
	return o == OriginObserved || o == OriginPredicted
}
