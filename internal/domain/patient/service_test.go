package patient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vanuse/clinic/internal/domain/user"
)

// =========== Mock Repository ===========

type assignment struct{ patientID, doctorID int64 }

type mockPatientRepo struct {
	patients    map[int64]*Patient
	records     map[int64][]*MedicalRecord
	assignments []assignment
	nextID      int64
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{
		patients: make(map[int64]*Patient),
		records:  make(map[int64][]*MedicalRecord),
		nextID:   1,
	}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = m.nextID
	m.nextID++
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %d not found", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	existing, ok := m.patients[p.ID]
	if !ok {
		return fmt.Errorf("patient %d not found", p.ID)
	}
	existing.Name = p.Name
	existing.Age = p.Age
	existing.Gender = p.Gender
	existing.Address = p.Address
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id int64) error {
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		cp := *p
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockPatientRepo) ListByDoctor(_ context.Context, doctorID int64, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		if p.DoctorID == doctorID {
			cp := *p
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockPatientRepo) ReassignDoctor(_ context.Context, patientID, doctorID int64) error {
	p, ok := m.patients[patientID]
	if !ok {
		return fmt.Errorf("patient %d not found", patientID)
	}
	p.DoctorID = doctorID
	return nil
}

func (m *mockPatientRepo) GrantAssignment(_ context.Context, patientID, doctorID int64) error {
	for _, a := range m.assignments {
		if a.patientID == patientID && a.doctorID == doctorID {
			return nil
		}
	}
	m.assignments = append(m.assignments, assignment{patientID, doctorID})
	return nil
}

func (m *mockPatientRepo) HasAssignment(_ context.Context, patientID, doctorID int64) (bool, error) {
	for _, a := range m.assignments {
		if a.patientID == patientID && a.doctorID == doctorID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPatientRepo) ListAssigned(_ context.Context, doctorID int64, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, a := range m.assignments {
		if a.doctorID != doctorID {
			continue
		}
		if p, ok := m.patients[a.patientID]; ok {
			cp := *p
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockPatientRepo) CreateRecord(_ context.Context, rec *MedicalRecord) error {
	rec.ID = m.nextID
	m.nextID++
	cp := *rec
	m.records[rec.PatientID] = append(m.records[rec.PatientID], &cp)
	return nil
}

func (m *mockPatientRepo) ListRecords(_ context.Context, patientID int64, limit, offset int) ([]*MedicalRecord, int, error) {
	recs := m.records[patientID]
	return recs, len(recs), nil
}

// =========== Stub Doctor Directory ===========

type stubDirectory struct{ doctors map[int64]*user.User }

func (d *stubDirectory) GetDoctor(_ context.Context, id int64) (*user.User, error) {
	u, ok := d.doctors[id]
	if !ok {
		return nil, fmt.Errorf("user %d is not a doctor", id)
	}
	return u, nil
}

func newTestService(repo *mockPatientRepo) *Service {
	dir := &stubDirectory{doctors: map[int64]*user.User{
		10: {ID: 10, Email: "a@clinic.test", Role: user.RoleDoctor},
		11: {ID: 11, Email: "b@clinic.test", Role: user.RoleDoctor},
	}}
	return NewService(repo, dir, zerolog.Nop())
}

func seedPatient(t *testing.T, repo *mockPatientRepo, name string, doctorID int64) *Patient {
	t.Helper()
	p := &Patient{Name: name, Age: 40, Gender: "female", DoctorID: doctorID}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("failed to seed patient: %v", err)
	}
	return p
}

// =========== Tests ===========

func TestCreatePatient_DoctorStampsOwnID(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)

	p := &Patient{Name: "Jane Doe", DoctorID: 11}
	if err := svc.CreatePatient(context.Background(), p, 10, user.RoleDoctor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DoctorID != 10 {
		t.Errorf("doctor_id = %d, want caller id 10", p.DoctorID)
	}
}

func TestCreatePatient_SecretaryNamesDoctor(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)

	p := &Patient{Name: "Jane Doe", DoctorID: 11}
	if err := svc.CreatePatient(context.Background(), p, 5, user.RoleSecretary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DoctorID != 11 {
		t.Errorf("doctor_id = %d, want 11", p.DoctorID)
	}
}

func TestCreatePatient_UnknownDoctorRejected(t *testing.T) {
	svc := newTestService(newMockPatientRepo())

	p := &Patient{Name: "Jane Doe", DoctorID: 99}
	if err := svc.CreatePatient(context.Background(), p, 5, user.RoleSecretary); err == nil {
		t.Fatal("expected error for unknown doctor")
	}
}

func TestGetPatient_OwnDoctorAllowed(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	got, err := svc.GetPatient(context.Background(), p.ID, 10, user.RoleDoctor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Jane Doe" {
		t.Errorf("name = %q", got.Name)
	}
}

func TestGetPatient_OtherDoctorForbidden(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	_, err := svc.GetPatient(context.Background(), p.ID, 11, user.RoleDoctor)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGetPatient_SharedDoctorAllowed(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	if err := svc.ShareInfo(context.Background(), p.ID, 11, 10, user.RoleDoctor); err != nil {
		t.Fatalf("share failed: %v", err)
	}
	if _, err := svc.GetPatient(context.Background(), p.ID, 11, user.RoleDoctor); err != nil {
		t.Fatalf("shared doctor should have access: %v", err)
	}
}

func TestGetPatient_SecretarySeesAll(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	if _, err := svc.GetPatient(context.Background(), p.ID, 5, user.RoleSecretary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListPatients_DoctorScoped(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	seedPatient(t, repo, "Mine", 10)
	seedPatient(t, repo, "Theirs", 11)

	items, total, err := svc.ListPatients(context.Background(), 10, user.RoleDoctor, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Name != "Mine" {
		t.Errorf("got %d patients, want only the caller's own", total)
	}

	_, total, err = svc.ListPatients(context.Background(), 5, user.RoleSecretary, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("secretary total = %d, want 2", total)
	}
}

func TestAssignDoctor_Reassigns(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	if err := svc.AssignDoctor(context.Background(), p.ID, 11); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.DoctorID != 11 {
		t.Errorf("doctor_id = %d, want 11", got.DoctorID)
	}
}

func TestAssignDoctor_UnknownDoctor(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	if err := svc.AssignDoctor(context.Background(), p.ID, 99); err == nil {
		t.Fatal("expected error for unknown doctor")
	}
}

func TestShareInfo_RequiresAccess(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	err := svc.ShareInfo(context.Background(), p.ID, 10, 11, user.RoleDoctor)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestShareInfo_Idempotent(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	for i := 0; i < 2; i++ {
		if err := svc.ShareInfo(context.Background(), p.ID, 11, 10, user.RoleDoctor); err != nil {
			t.Fatalf("share %d failed: %v", i, err)
		}
	}
	if len(repo.assignments) != 1 {
		t.Errorf("assignments = %d, want 1", len(repo.assignments))
	}
}

func TestAssignedPatients(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)
	seedPatient(t, repo, "Unshared", 10)

	if err := svc.ShareInfo(context.Background(), p.ID, 11, 10, user.RoleDoctor); err != nil {
		t.Fatalf("share failed: %v", err)
	}

	items, total, err := svc.AssignedPatients(context.Background(), 11, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != p.ID {
		t.Errorf("assigned = %d, want just the shared patient", total)
	}
}

func TestAddRecord_DefaultsStatus(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	rec := &MedicalRecord{PatientID: p.ID, Description: "follow-up", Diagnosis: "flu"}
	if err := svc.AddRecord(context.Background(), rec, 10, user.RoleDoctor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != RecordStatusActive {
		t.Errorf("status = %q, want %q", rec.Status, RecordStatusActive)
	}
}

func TestAddRecord_OtherDoctorForbidden(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	rec := &MedicalRecord{PatientID: p.ID, Description: "follow-up"}
	err := svc.AddRecord(context.Background(), rec, 11, user.RoleDoctor)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListRecords(t *testing.T) {
	repo := newMockPatientRepo()
	svc := newTestService(repo)
	p := seedPatient(t, repo, "Jane Doe", 10)

	for _, desc := range []string{"intake", "follow-up"} {
		rec := &MedicalRecord{PatientID: p.ID, Description: desc}
		if err := svc.AddRecord(context.Background(), rec, 10, user.RoleDoctor); err != nil {
			t.Fatalf("add record failed: %v", err)
		}
	}

	items, total, err := svc.ListRecords(context.Background(), p.ID, 10, user.RoleDoctor, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("records = %d, want 2", total)
	}
}
