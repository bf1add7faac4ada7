package patient

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vanuse/clinic/internal/domain/user"
)

// ErrForbidden is returned when the caller may not act on the patient.
var ErrForbidden = fmt.Errorf("access to patient denied")

// DoctorDirectory resolves doctor accounts. Satisfied by the user service.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id int64) (*user.User, error)
}

// Service provides business logic for patients and medical records.
type Service struct {
	patients Repository
	doctors  DoctorDirectory
	logger   zerolog.Logger
}

// NewService creates a new patient domain service.
func NewService(patients Repository, doctors DoctorDirectory, logger zerolog.Logger) *Service {
	return &Service{patients: patients, doctors: doctors, logger: logger}
}

// CreatePatient registers a patient. When the caller is a doctor the record
// is stamped with their id; other roles must name the treating doctor.
func (s *Service) CreatePatient(ctx context.Context, p *Patient, callerID int64, callerRole string) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if callerRole == user.RoleDoctor {
		p.DoctorID = callerID
	}
	if p.DoctorID == 0 {
		return fmt.Errorf("doctor_id is required")
	}
	if _, err := s.doctors.GetDoctor(ctx, p.DoctorID); err != nil {
		return fmt.Errorf("doctor %d: %w", p.DoctorID, err)
	}
	return s.patients.Create(ctx, p)
}

// GetPatient returns the patient if the caller is allowed to see them.
// Doctors see their own patients and patients shared with them; other
// roles see everyone.
func (s *Service) GetPatient(ctx context.Context, id, callerID int64, callerRole string) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, callerID, callerRole); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPatients scopes the listing to the caller: doctors get their own
// patients, every other role the full roster.
func (s *Service) ListPatients(ctx context.Context, callerID int64, callerRole string, limit, offset int) ([]*Patient, int, error) {
	if callerRole == user.RoleDoctor {
		return s.patients.ListByDoctor(ctx, callerID, limit, offset)
	}
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient, callerID int64, callerRole string) error {
	current, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, current, callerID, callerRole); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id, callerID int64, callerRole string) error {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, p, callerID, callerRole); err != nil {
		return err
	}
	return s.patients.Delete(ctx, id)
}

// AssignDoctor makes doctorID the treating doctor for the patient.
func (s *Service) AssignDoctor(ctx context.Context, patientID, doctorID int64) error {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return err
	}
	if _, err := s.doctors.GetDoctor(ctx, doctorID); err != nil {
		return fmt.Errorf("doctor %d: %w", doctorID, err)
	}
	if err := s.patients.ReassignDoctor(ctx, patientID, doctorID); err != nil {
		return err
	}
	s.logger.Info().Int64("patient_id", patientID).Int64("doctor_id", doctorID).Msg("patient reassigned")
	return nil
}

// ShareInfo grants doctorID read access to the patient. The caller must
// already have access themselves.
func (s *Service) ShareInfo(ctx context.Context, patientID, doctorID, callerID int64, callerRole string) error {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, p, callerID, callerRole); err != nil {
		return err
	}
	if _, err := s.doctors.GetDoctor(ctx, doctorID); err != nil {
		return fmt.Errorf("doctor %d: %w", doctorID, err)
	}
	if err := s.patients.GrantAssignment(ctx, patientID, doctorID); err != nil {
		return err
	}
	s.logger.Info().Int64("patient_id", patientID).Int64("doctor_id", doctorID).Msg("patient shared")
	return nil
}

// AssignedPatients lists patients shared with the doctor.
func (s *Service) AssignedPatients(ctx context.Context, doctorID int64, limit, offset int) ([]*Patient, int, error) {
	return s.patients.ListAssigned(ctx, doctorID, limit, offset)
}

// AddRecord appends a medical record to the patient's history.
func (s *Service) AddRecord(ctx context.Context, rec *MedicalRecord, callerID int64, callerRole string) error {
	if rec.Description == "" {
		return fmt.Errorf("description is required")
	}
	p, err := s.patients.GetByID(ctx, rec.PatientID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, p, callerID, callerRole); err != nil {
		return err
	}
	if rec.Status == "" {
		rec.Status = RecordStatusActive
	}
	return s.patients.CreateRecord(ctx, rec)
}

func (s *Service) ListRecords(ctx context.Context, patientID, callerID int64, callerRole string, limit, offset int) ([]*MedicalRecord, int, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.authorize(ctx, p, callerID, callerRole); err != nil {
		return nil, 0, err
	}
	return s.patients.ListRecords(ctx, patientID, limit, offset)
}

// authorize enforces doctor scoping. Doctors may act on their own patients
// and on patients shared with them; every other role passes.
func (s *Service) authorize(ctx context.Context, p *Patient, callerID int64, callerRole string) error {
	if callerRole != user.RoleDoctor {
		return nil
	}
	if p.DoctorID == callerID {
		return nil
	}
	shared, err := s.patients.HasAssignment(ctx, p.ID, callerID)
	if err != nil {
		return err
	}
	if !shared {
		return ErrForbidden
	}
	return nil
}
