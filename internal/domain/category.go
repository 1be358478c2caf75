package domain

// Sentinel is the placeholder the source dataset uses for "no category at this depth".
const Sentinel = "-"

// SourceCategoryRecord is one row of the external category dataset after the
// irregular source keys have been translated. Nil pointers mean the key was
// absent or null in the source; Sentinel values are kept verbatim.
type SourceCategoryRecord struct {
	SourceID     int64 // 0 when the source row carries no usable id
	MainCategory string

	Sub1 *string
	Sub2 *string
	Sub3 *string
	Sub4 *string

	Image1 *string
	Image2 *string
	Image3 *string
	Image4 *string
}

// NormalizedCategory is the destination row keyed by SourceID.
type NormalizedCategory struct {
	SourceID int64  `json:"category_data_id" validate:"gt=0"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`

	MainCategory string  `json:"main_category" validate:"required"`
	Sub1         *string `json:"sub1"`
	Sub2         *string `json:"sub2"`
	Sub3         *string `json:"sub3"`
	Sub4         *string `json:"sub4"`

	Image1 *string `json:"image1"`
	Image2 *string `json:"image2"`
	Image3 *string `json:"image3"`
	Image4 *string `json:"image4"`
	Image  *string `json:"image"`

	IsActive bool  `json:"is_active"`
	Position int64 `json:"position"`
}

// RecordError ties a failed write to the record that caused it.
type RecordError struct {
	SourceID int64  `json:"sourceId"`
	Message  string `json:"message"`
}

// SyncReport summarizes one upsert run. ErrorDetails is truncated; Errors is not.
type SyncReport struct {
	Total        int           `json:"total"`
	Success      int           `json:"success"`
	Errors       int           `json:"errors"`
	ErrorDetails []RecordError `json:"errorDetails"`

	// Set only when the reconciliation pass ran.
	Reconcile *ReconcileReport `json:"reconcile,omitempty"`
	// Set only for dry runs.
	DryRun bool `json:"dryRun,omitempty"`
}

// ReconcileReport counts the activity flips made by a reconciliation pass.
type ReconcileReport struct {
	Deactivated int64 `json:"deactivated"`
	Reactivated int64 `json:"reactivated"`
}

// Counts compares the raw source size with the destination row count.
type Counts struct {
	Source      int   `json:"json"`
	Destination int64 `json:"database"`
}

// Drift reports whether source and destination disagree.
func (c Counts) Drift() bool {
	return int64(c.Source) != c.Destination
}
