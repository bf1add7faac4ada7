package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vanuse/clinic/internal/platform/auth"
	"github.com/vanuse/clinic/pkg/pagination"
)

// Handler provides HTTP handlers for the user domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new user domain handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers user domain routes. public carries the
// unauthenticated account endpoints, api the bearer-protected ones.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/users", h.CreateUser)
	public.POST("/token", h.Login)
	public.POST("/forgot-password", h.ForgotPassword)
	public.POST("/reset-password", h.ResetPassword)

	api.GET("/users", h.ListUsers)
	api.GET("/users/me", h.Me)
	api.GET("/users/:id", h.GetUser)
	api.PUT("/users/:id", h.UpdateUser)
	api.DELETE("/users/:id", h.DeleteUser)

	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u := &User{Email: req.Email, Name: req.Name, Role: req.Role}
	if err := h.svc.CreateUser(c.Request().Context(), u, req.Password); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}

// Login handles the password grant. Credentials arrive as form fields
// username (the email) and password; the response carries a bearer token.
func (h *Handler) Login(c echo.Context) error {
	email := c.FormValue("username")
	password := c.FormValue("password")

	token, err := h.svc.Authenticate(c.Request().Context(), email, password)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *Handler) Me(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	u, err := h.svc.GetUser(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type updateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u := &User{ID: id, Email: req.Email, Name: req.Name, Role: req.Role}
	if err := h.svc.UpdateUser(c.Request().Context(), u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	return c.JSON(http.StatusOK, u)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no account for that email")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "reset token sent"})
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := uuid.Parse(req.Token)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
	}

	err = h.svc.ResetPassword(c.Request().Context(), token, req.Password, req.ConfirmPassword)
	switch {
	case errors.Is(err, ErrPasswordMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidResetToken):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
