package patient

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vanuse/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, name, age, gender, address, doctor_id, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.Address, &p.DoctorID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (name, age, gender, address, doctor_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Age, p.Gender, p.Address, p.DoctorID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, age=$3, gender=$4, address=$5, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Age, p.Gender, p.Address)
	return err
}

func (r *patientRepoPG) Delete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *patientRepoPG) ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE doctor_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *patientRepoPG) collect(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) ReassignDoctor(ctx context.Context, patientID, doctorID int64) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET doctor_id=$2, updated_at=NOW() WHERE id = $1`,
		patientID, doctorID)
	return err
}

func (r *patientRepoPG) GrantAssignment(ctx context.Context, patientID, doctorID int64) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_doctors (patient_id, doctor_id)
		VALUES ($1, $2)
		ON CONFLICT (patient_id, doctor_id) DO NOTHING`,
		patientID, doctorID)
	return err
}

func (r *patientRepoPG) HasAssignment(ctx context.Context, patientID, doctorID int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patient_doctors WHERE patient_id = $1 AND doctor_id = $2
		)`,
		patientID, doctorID,
	).Scan(&exists)
	return exists, err
}

func (r *patientRepoPG) ListAssigned(ctx context.Context, doctorID int64, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_doctors WHERE doctor_id = $1`, doctorID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, p.name, p.age, p.gender, p.address, p.doctor_id, p.created_at, p.updated_at
		FROM patients p
		JOIN patient_doctors pd ON pd.patient_id = p.id
		WHERE pd.doctor_id = $1
		ORDER BY p.id LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *patientRepoPG) CreateRecord(ctx context.Context, rec *MedicalRecord) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_records (patient_id, description, diagnosis, prescription, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		rec.PatientID, rec.Description, rec.Diagnosis, rec.Prescription, rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt)
}

func (r *patientRepoPG) ListRecords(ctx context.Context, patientID int64, limit, offset int) ([]*MedicalRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_records WHERE patient_id = $1`, patientID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, description, diagnosis, prescription, status, created_at
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		var rec MedicalRecord
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.Description, &rec.Diagnosis, &rec.Prescription, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &rec)
	}
	return items, total, rows.Err()
}
