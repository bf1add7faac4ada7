package patient

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vanuse/clinic/internal/domain/user"
	"github.com/vanuse/clinic/internal/platform/auth"
	"github.com/vanuse/clinic/pkg/pagination"
)

// Handler provides HTTP handlers for the patient domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new patient domain handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers patient domain routes on the authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := auth.RequireRole(user.RoleDoctor, user.RoleSecretary)

	api.POST("/patients", h.CreatePatient, clinical)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient, clinical)
	api.DELETE("/patients/:id", h.DeletePatient, clinical)

	api.POST("/patients/:id/assign-doctor/:doctor_id", h.AssignDoctor, clinical)
	api.POST("/patients/:id/share-info/:doctor_id", h.ShareInfo, auth.RequireRole(user.RoleDoctor))

	api.POST("/patients/:id/medical-records", h.CreateRecord, auth.RequireRole(user.RoleDoctor, user.RoleLaboratory))
	api.GET("/patients/:id/medical-records", h.ListRecords)

	api.GET("/doctors/:id/assigned-patients", h.AssignedPatients)
}

type patientRequest struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Address  string `json:"address"`
	DoctorID int64  `json:"doctor_id"`
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	p := &Patient{Name: req.Name, Age: req.Age, Gender: req.Gender, Address: req.Address, DoctorID: req.DoctorID}
	if err := h.svc.CreatePatient(ctx, p, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := param(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.GetPatient(ctx, id, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	switch {
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.ListPatients(ctx, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := param(c, "id")
	if err != nil {
		return err
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	p := &Patient{ID: id, Name: req.Name, Age: req.Age, Gender: req.Gender, Address: req.Address}
	err = h.svc.UpdatePatient(ctx, p, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	switch {
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := param(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	err = h.svc.DeletePatient(ctx, id, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	switch {
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AssignDoctor(c echo.Context) error {
	patientID, err := param(c, "id")
	if err != nil {
		return err
	}
	doctorID, err := param(c, "doctor_id")
	if err != nil {
		return err
	}
	if err := h.svc.AssignDoctor(c.Request().Context(), patientID, doctorID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "doctor assigned"})
}

func (h *Handler) ShareInfo(c echo.Context) error {
	patientID, err := param(c, "id")
	if err != nil {
		return err
	}
	doctorID, err := param(c, "doctor_id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	err = h.svc.ShareInfo(ctx, patientID, doctorID, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	switch {
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "patient shared"})
}

func (h *Handler) AssignedPatients(c echo.Context) error {
	doctorID, err := param(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.AssignedPatients(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type recordRequest struct {
	Description  string `json:"description"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	Status       string `json:"status"`
}

func (h *Handler) CreateRecord(c echo.Context) error {
	patientID, err := param(c, "id")
	if err != nil {
		return err
	}
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	rec := &MedicalRecord{
		PatientID:    patientID,
		Description:  req.Description,
		Diagnosis:    req.Diagnosis,
		Prescription: req.Prescription,
		Status:       req.Status,
	}
	err = h.svc.AddRecord(ctx, rec, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	switch {
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListRecords(c echo.Context) error {
	patientID, err := param(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.ListRecords(ctx, patientID, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx), pg.Limit, pg.Offset)
	switch {
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func param(c echo.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}
