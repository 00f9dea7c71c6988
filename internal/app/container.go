package app

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-iam/internal/auth"
	"github.com/odyssey-erp/odyssey-iam/internal/employees"
	"github.com/odyssey-erp/odyssey-iam/internal/observability"
	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/roles"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
	"github.com/odyssey-erp/odyssey-iam/jobs"
)

// Stores bundles the persistence adapters of one backend.
type Stores struct {
	Users     users.Repository
	Roles     roles.Repository
	Employees employees.Repository
	Audit     shared.AuditRecorder
}

// Notifier publishes account and role-set events.
type Notifier interface {
	auth.WelcomeNotifier
	roles.ChangeNotifier
}

// ContainerParams holds everything NewContainer needs from the outside.
type ContainerParams struct {
	Config      *Config
	Logger      *slog.Logger
	Stores      Stores
	Revocations auth.RevocationList
	// Notifier may be nil when no queue is configured.
	Notifier     Notifier
	Metrics      *observability.Metrics
	JobInspector *asynq.Inspector
	// OnCritical runs after a critical error has been answered.
	OnCritical func(error)
}

// Container exposes the wired services and the HTTP handler.
type Container struct {
	Users       *users.Service
	Roles       *roles.Service
	Assignments *roles.AssignmentService
	Employees   *employees.Service
	Auth        *auth.Service
	Gate        *auth.Gate
	RBAC        rbac.Middleware
	Handler     http.Handler
}

// NewContainer wires services, gates and handlers around the given stores.
func NewContainer(p ContainerParams) (*Container, error) {
	if p.Config == nil {
		return nil, errors.New("app: config is required")
	}
	if p.Stores.Users == nil || p.Stores.Roles == nil || p.Stores.Employees == nil {
		return nil, errors.New("app: stores are required")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	revocations := p.Revocations
	if revocations == nil {
		revocations = auth.NewMemoryRevocationList()
	}

	tokens, err := auth.NewTokenManager(p.Config.JWTPrivateKey, p.Config.JWTPublicKey, p.Config.JWTTTL, p.Config.JWTIssuer)
	if err != nil {
		return nil, shared.Critical("invalid signing keys", err)
	}

	responder := httpx.NewResponder(logger, p.OnCritical)
	responder.UnknownStatus = p.Config.ErrorsUnknownStatus
	validate := httpx.NewValidator()

	cost := p.Config.BcryptCost
	if InTestMode() {
		cost = bcrypt.MinCost
	}

	var welcome auth.WelcomeNotifier
	var changes roles.ChangeNotifier
	if p.Notifier != nil {
		welcome, changes = p.Notifier, p.Notifier
	}

	userService := users.NewService(p.Stores.Users, users.NewPasswordHasher(cost), p.Stores.Audit, logger)
	roleService := roles.NewService(p.Stores.Roles, p.Stores.Audit, logger)
	assignments := roles.NewAssignmentService(p.Stores.Roles, p.Stores.Employees, p.Stores.Users, p.Stores.Audit, changes, logger)
	employeeService := employees.NewService(p.Stores.Employees, userService, p.Stores.Roles, p.Stores.Audit, logger)
	authService := auth.NewService(userService, tokens, revocations, welcome, logger)
	gate := auth.NewGate(tokens, revocations, p.Stores.Users, responder)

	rbacMiddleware := rbac.Middleware{
		Actor:     auth.ActorIDFromContext,
		Service:   rbac.NewService(p.Stores.Roles, employeeService, userService),
		Responder: responder,
		Logger:    logger,
	}
	if p.Metrics != nil {
		rbacMiddleware.Observer = p.Metrics
	}

	handler := NewRouter(RouterParams{
		Logger:             logger,
		Config:             p.Config,
		Gate:               gate,
		AuthHandler:        auth.NewHandler(logger, authService, gate, validate, responder),
		UsersHandler:       users.NewHandler(userService, validate, responder, rbacMiddleware),
		EmployeesHandler:   employees.NewHandler(employeeService, validate, responder, rbacMiddleware),
		RolesHandler:       roles.NewHandler(roleService, assignments, validate, responder, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(rbacMiddleware),
		JobHandler:         jobs.NewHandler(p.JobInspector, logger),
		Metrics:            p.Metrics,
		RequestLog:         !InTestMode(),
	})

	return &Container{
		Users:       userService,
		Roles:       roleService,
		Assignments: assignments,
		Employees:   employeeService,
		Auth:        authService,
		Gate:        gate,
		RBAC:        rbacMiddleware,
		Handler:     handler,
	}, nil
}
