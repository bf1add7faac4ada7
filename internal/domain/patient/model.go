package patient

import "time"

// Patient is a clinic patient. DoctorID is the treating doctor; additional
// doctors gain read access through assignment rows.
type Patient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender"`
	Address   string    `json:"address"`
	DoctorID  int64     `json:"doctor_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Medical record status values.
const (
	RecordStatusActive = "active"
	RecordStatusClosed = "closed"
)

// MedicalRecord is one entry in a patient's history.
type MedicalRecord struct {
	ID           int64     `json:"id"`
	PatientID    int64     `json:"patient_id"`
	Description  string    `json:"description"`
	Diagnosis    string    `json:"diagnosis"`
	Prescription string    `json:"prescription"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
