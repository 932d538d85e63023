package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/marketdesk/internal/apperr"
	"github.com/ashureev/marketdesk/internal/domain"
	"github.com/ashureev/marketdesk/internal/guard"
	"github.com/ashureev/marketdesk/internal/navigation"
)

// Dashboard areas and who may enter them.
var (
	ClientArea = guard.Area{
		Name:  "client",
		Roles: []domain.Role{domain.RoleClient},
	}
	DeveloperArea = guard.Area{
		Name:            "developer",
		Roles:           []domain.Role{domain.RoleDeveloper},
		RequireApproved: true,
	}
	PendingApprovalArea = guard.Area{
		Name:  "developer-pending",
		Roles: []domain.Role{domain.RoleDeveloper},
	}
	AdminArea = guard.Area{
		Name:  "admin",
		Roles: []domain.Role{domain.RoleAdmin},
	}
	MessagesArea = guard.Area{
		Name: "messages",
	}
)

// AreaHandler serves the role dashboards.
type AreaHandler struct {
	*Handler
}

// NewAreaHandler creates a new area handler.
func NewAreaHandler(base *Handler) *AreaHandler {
	return &AreaHandler{Handler: base}
}

// RegisterRoutes registers every guarded area.
func (h *AreaHandler) RegisterRoutes(r chi.Router) {
	r.Get(navigation.HomePath, h.Home)

	r.Route(navigation.ClientPath, func(r chi.Router) {
		r.Use(guard.Middleware(h.sess, ClientArea))
		r.Get("/", h.ClientDashboard)
		r.Post("/projects", h.CreateProject)
		r.Get("/projects/{id}", h.ClientProject)
		r.Get("/payments", h.ListPayments)
	})

	r.With(guard.Middleware(h.sess, PendingApprovalArea)).Get(navigation.PendingApprovalPath, h.PendingApproval)
	r.Route(navigation.DeveloperPath, func(r chi.Router) {
		r.Use(guard.Middleware(h.sess, DeveloperArea))
		r.Get("/", h.DeveloperDashboard)
		r.Patch("/tasks/{id}", h.UpdateTask)
		r.Post("/applications", h.Apply)
	})

	r.Route(navigation.AdminPath, func(r chi.Router) {
		r.Use(guard.Middleware(h.sess, AdminArea))
		r.Get("/", h.AdminDashboard)
		r.Get("/projects", h.ListProjects)
		r.Get("/projects/{id}", h.AdminProject)
		r.Patch("/projects/{id}", h.UpdateProjectStatus)
		r.Get("/tasks", h.ListTasks)
		r.Post("/tasks", h.CreateTask)
		r.Get("/applications", h.ListApplications)
		r.Post("/applications/{id}/approve", h.ApproveApplication)
		r.Post("/applications/{id}/reject", h.RejectApplication)
		r.Get("/users", h.ListUsers)
		r.Post("/users/{id}/approve", h.ApproveUser)
		r.Get("/payments", h.ListPayments)
		r.Post("/payments", h.CreatePayment)
	})
}

// Home sends authenticated users to their landing area and everyone else to login.
func (h *AreaHandler) Home(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.WaitResolved(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "session is loading")
		return
	}
	snap := h.sess.Snapshot()
	target := navigation.LoginPath
	if snap.IsAuthenticated() {
		if landing, ok := navigation.LandingPath(snap.Profile.Role); ok {
			target = landing
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AreaHandler) ClientDashboard(w http.ResponseWriter, r *http.Request) {
	projects, err := h.backend.ListProjects(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"profile":  guard.ProfileFromContext(r.Context()),
		"projects": projects,
	})
}

func (h *AreaHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var p domain.NewProject
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, err)
		return
	}
	if strings.TrimSpace(p.Title) == "" {
		WriteError(w, apperr.New(apperr.CodeValidation, "title is required", nil))
		return
	}
	created, err := h.backend.CreateProject(r.Context(), p)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, created)
}

func (h *AreaHandler) ClientProject(w http.ResponseWriter, r *http.Request) {
	h.projectDetail(w, r, false)
}

func (h *AreaHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.backend.ListPayments(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, payments)
}

func (h *AreaHandler) PendingApproval(w http.ResponseWriter, r *http.Request) {
	p := guard.ProfileFromContext(r.Context())
	if p != nil && p.IsApproved {
		http.Redirect(w, r, navigation.DeveloperPath, http.StatusFound)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"profile":  p,
		"approved": false,
	})
}

func (h *AreaHandler) DeveloperDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := h.backend.ListProjects(ctx)
	if err != nil {
		WriteError(w, err)
		return
	}
	tasks, err := h.backend.ListTasks(ctx, 0)
	if err != nil {
		WriteError(w, err)
		return
	}
	applications, err := h.backend.ListApplications(ctx, 0)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"profile":      guard.ProfileFromContext(ctx),
		"projects":     projects,
		"tasks":        tasks,
		"applications": applications,
	})
}

func (h *AreaHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	var u domain.TaskUpdate
	if err := decodeJSON(r, &u); err != nil {
		WriteError(w, err)
		return
	}
	if u.Status != "" && !u.Status.Valid() {
		WriteError(w, apperr.New(apperr.CodeValidation, "unknown task status "+string(u.Status), nil))
		return
	}
	task, err := h.backend.UpdateTask(r.Context(), id, u)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, task)
}

type applyRequest struct {
	Project     int64  `json:"project"`
	CoverLetter string `json:"cover_letter"`
}

func (h *AreaHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Project <= 0 {
		WriteError(w, apperr.New(apperr.CodeValidation, "project is required", nil))
		return
	}
	app, err := h.backend.Apply(r.Context(), req.Project, req.CoverLetter)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, app)
}

func (h *AreaHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.backend.AdminStats(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"profile": guard.ProfileFromContext(r.Context()),
		"stats":   stats,
	})
}

func (h *AreaHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.backend.ListProjects(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, projects)
}

func (h *AreaHandler) AdminProject(w http.ResponseWriter, r *http.Request) {
	h.projectDetail(w, r, true)
}

// projectDetail renders a project with its tasks, and its applications when
// withApplications is set.
func (h *AreaHandler) projectDetail(w http.ResponseWriter, r *http.Request, withApplications bool) {
	id, err := idParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	ctx := r.Context()
	project, err := h.backend.GetProject(ctx, id)
	if err != nil {
		WriteError(w, err)
		return
	}
	tasks, err := h.backend.ListTasks(ctx, id)
	if err != nil {
		WriteError(w, err)
		return
	}
	out := map[string]interface{}{
		"project": project,
		"tasks":   tasks,
	}
	if withApplications {
		apps, err := h.backend.ListApplications(ctx, id)
		if err != nil {
			WriteError(w, err)
			return
		}
		out["applications"] = apps
	}
	JSON(w, http.StatusOK, out)
}

type projectStatusRequest struct {
	Status domain.ProjectStatus `json:"status"`
}

func (h *AreaHandler) UpdateProjectStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	var req projectStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if !req.Status.Valid() {
		WriteError(w, apperr.New(apperr.CodeValidation, "unknown project status "+string(req.Status), nil))
		return
	}
	project, err := h.backend.UpdateProjectStatus(r.Context(), id, req.Status)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, project)
}

func (h *AreaHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, err := optionalID(r, "project")
	if err != nil {
		WriteError(w, err)
		return
	}
	tasks, err := h.backend.ListTasks(r.Context(), projectID)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, tasks)
}

func (h *AreaHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var t domain.NewTask
	if err := decodeJSON(r, &t); err != nil {
		WriteError(w, err)
		return
	}
	if t.Project <= 0 || t.AssignedTo <= 0 {
		WriteError(w, apperr.New(apperr.CodeValidation, "project and assigned_to are required", nil))
		return
	}
	task, err := h.backend.CreateTask(r.Context(), t)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, task)
}

func (h *AreaHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	projectID, err := optionalID(r, "project_id")
	if err != nil {
		WriteError(w, err)
		return
	}
	apps, err := h.backend.ListApplications(r.Context(), projectID)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, apps)
}

func (h *AreaHandler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	h.reviewApplication(w, r, true)
}

func (h *AreaHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	h.reviewApplication(w, r, false)
}

func (h *AreaHandler) reviewApplication(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := idParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	status := domain.ApplicationRejected
	if approve {
		status = domain.ApplicationApproved
		err = h.backend.ApproveApplication(r.Context(), id)
	} else {
		err = h.backend.RejectApplication(r.Context(), id)
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": status})
}

func (h *AreaHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.backend.ListUsers(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, users)
}

func (h *AreaHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}
	profile, err := h.backend.ApproveUser(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, profile)
}

func (h *AreaHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var p domain.NewPayment
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, err)
		return
	}
	if p.Payer <= 0 || strings.TrimSpace(p.Amount) == "" {
		WriteError(w, apperr.New(apperr.CodeValidation, "payer and amount are required", nil))
		return
	}
	payment, err := h.backend.CreatePayment(r.Context(), p)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, payment)
}

// optionalID parses an optional positive query parameter; absent yields 0.
func optionalID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.CodeValidation, "invalid "+name, err)
	}
	return id, nil
}
