package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsmind/auth/internal/service"
	"github.com/opsmind/auth/internal/transport"
	"github.com/opsmind/auth/pkg/logging"
)

type AdminHTTP struct {
	Svc *service.AdminService
}

func (h *AdminHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_create_user")

	var req transport.CreateUserRequest
	if err := bind(c, &req); err != nil {
		l.Warn("create_user_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Svc.CreateUser(ctx, service.CreateUserInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		IsVerified: req.IsVerified,
		IsActive:   req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.OK("User created successfully", transport.NewUser(*user)))
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	users, err := h.Svc.ListUsers(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK("Users retrieved successfully", transport.NewUsers(users)))
}

func (h *AdminHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_delete_user")

	var req transport.UserIDRequest
	if err := bind(c, &req); err != nil {
		l.Warn("delete_user_error", "status", 400, "error", err)
		return err
	}
	if err := h.Svc.DeleteUser(ctx, req.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK("User deleted successfully", nil))
}

func (h *AdminHTTP) UpdateUserStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_update_user_status")

	var req transport.UpdateUserStatusRequest
	if err := bind(c, &req); err != nil {
		l.Warn("update_user_status_error", "status", 400, "error", err)
		return err
	}

	user, msg, err := h.Svc.UpdateUserStatus(ctx, req.ID, *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(msg, transport.NewUser(*user)))
}

func (h *AdminHTTP) CreateTechnician(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_create_technician")

	var req transport.CreateTechnicianRequest
	if err := bind(c, &req); err != nil {
		l.Warn("create_technician_error", "status", 400, "error", err)
		return err
	}

	tech, err := h.Svc.CreateTechnician(ctx, service.CreateTechnicianInput{
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		EmployeeID:     req.EmployeeID,
		Department:     req.Department,
		Specialization: req.Specialization,
		BuildingIDs:    req.BuildingIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.OK("Technician created successfully", transport.NewTechnician(*tech)))
}

func (h *AdminHTTP) ListTechnicians(c echo.Context) error {
	techs, err := h.Svc.ListTechnicians(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK("Technicians retrieved successfully", transport.NewTechnicians(techs)))
}

func (h *AdminHTTP) CreateBuilding(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_create_building")

	var req transport.CreateBuildingRequest
	if err := bind(c, &req); err != nil {
		l.Warn("create_building_error", "status", 400, "error", err)
		return err
	}

	b, err := h.Svc.CreateBuilding(ctx, service.CreateBuildingInput{Name: req.Name, Code: req.Code, Address: req.Address})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.OK("Building created successfully", transport.NewBuilding(*b)))
}

func (h *AdminHTTP) ListBuildings(c echo.Context) error {
	buildings, err := h.Svc.ListBuildings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK("Buildings retrieved successfully", transport.NewBuildings(buildings)))
}
