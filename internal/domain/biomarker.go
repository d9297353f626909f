package domain

import (
	"errors"
	"fmt"
	"time"
)

// ReferenceRange is the laboratory range a biomarker value is classified
// against. Both bounds are inclusive: a value exactly at Min or Max is
// optimal.
type ReferenceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Validate ensures the range is well-formed.
func (r *ReferenceRange) Validate() error {
	if r.Min >= r.Max {
		return fmt.Errorf("reference range validation: min %g must be below max %g", r.Min, r.Max)
	}
	return nil
}

// BiomarkerReading represents one clinical measurement extracted from an
// uploaded lab document. Status is always derived from the current value
// and reference range; it must be recomputed after any edit and is never
// user-supplied.
type BiomarkerReading struct {
	ID       string `json:"id"`
	ReportID string `json:"report_id,omitempty"`

	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`

	// ReferenceRange is optional; without it the reading cannot be
	// classified and is excluded from all downstream scoring.
	ReferenceRange *ReferenceRange `json:"reference_range,omitempty"`

	Status   BiomarkerStatus `json:"status,omitempty"`
	Category string          `json:"category,omitempty"`

	// Confidence is the extraction provider's trust signal in [0,1].
	// Missing confidence is treated as trusted (1.0). Display only.
	Confidence float64 `json:"confidence"`

	// Verified is set when a human reviewer confirmed or corrected the
	// extracted value. A reading may be verified exactly once and is
	// immutable thereafter.
	Verified bool `json:"verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Classifiable reports whether the reading carries a reference range and
// can therefore be assigned a status.
func (b *BiomarkerReading) Classifiable() bool {
	return b.ReferenceRange != nil
}

// Validate ensures the reading meets the engine's integrity requirements.
func (b *BiomarkerReading) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("biomarker validation: %w", errors.New("name is required"))
	}
	if b.Confidence < 0 || b.Confidence > 1 {
		return fmt.Errorf("biomarker validation: confidence %g outside [0,1]", b.Confidence)
	}
	if b.ReferenceRange != nil {
		if err := b.ReferenceRange.Validate(); err != nil {
			return fmt.Errorf("biomarker validation: %w", err)
		}
	}
	if b.Status != "" && !b.Status.IsValid() {
		return fmt.Errorf("biomarker validation: %w", ErrInvalidStatus)
	}
	return nil
}

// LabReport groups the biomarker readings extracted from one uploaded
// document. Insights may be snapshotted onto the record for display, but
// recomputation from the readings is always authoritative.
type LabReport struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Status    ReportStatus         `json:"status"`
	Readings  []BiomarkerReading   `json:"readings,omitempty"`
	Insights  []CorrelationInsight `json:"insights,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Validate ensures the report and its readings are well-formed.
func (r *LabReport) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("lab report validation: %w", errors.New("ID is required"))
	}
	if r.UserID == "" {
		return fmt.Errorf("lab report validation: %w", errors.New("user ID is required"))
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("lab report validation: invalid status %q", r.Status)
	}
	for i := range r.Readings {
		if err := r.Readings[i].Validate(); err != nil {
			return fmt.Errorf("lab report validation: reading %d: %w", i, err)
		}
	}
	return nil
}
