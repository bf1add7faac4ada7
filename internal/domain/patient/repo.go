package patient

import "context"

// Repository defines storage operations for patients, doctor assignments
// and medical records.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Patient, int, error)

	ReassignDoctor(ctx context.Context, patientID, doctorID int64) error
	GrantAssignment(ctx context.Context, patientID, doctorID int64) error
	HasAssignment(ctx context.Context, patientID, doctorID int64) (bool, error)
	ListAssigned(ctx context.Context, doctorID int64, limit, offset int) ([]*Patient, int, error)

	CreateRecord(ctx context.Context, rec *MedicalRecord) error
	ListRecords(ctx context.Context, patientID int64, limit, offset int) ([]*MedicalRecord, int, error)
}
