package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"sales-forecast-lab/internal/domain"
)

// ComputeRowID computes a deterministic row_id using SHA256.
// Formula: SHA256(project_id|origin|batch|row_index)
// batch identifies the write: source|content digest for uploads, run_id for
// forecasts. Re-uploading identical content yields identical row IDs.
// Returns hex-encoded hash (64 characters).
func ComputeRowID(
	projectID string,
	origin domain.RecordOrigin,
	batch string,
	rowIndex int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		projectID,
		string(origin),
		batch,
		rowIndex,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeContentDigest returns the hex SHA256 of raw upload bytes.
func ComputeContentDigest(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// NewRunID returns a random identifier for one forecast run.
func NewRunID() string {
	return uuid.NewString()
}
