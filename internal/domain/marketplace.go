package domain

import "time"

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "Pending"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectReview     ProjectStatus = "Review"
	ProjectCompleted  ProjectStatus = "Completed"
	ProjectRejected   ProjectStatus = "Rejected"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPending, ProjectInProgress, ProjectReview, ProjectCompleted, ProjectRejected:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskAssigned         TaskStatus = "Assigned"
	TaskInProgress       TaskStatus = "In Progress"
	TaskReadyForReview   TaskStatus = "Ready For Review"
	TaskCompleted        TaskStatus = "Completed"
	TaskChangesRequested TaskStatus = "Changes Requested"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskAssigned, TaskInProgress, TaskReadyForReview, TaskCompleted, TaskChangesRequested:
		return true
	}
	return false
}

// Project is a client's request for work.
type Project struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ServiceType string        `json:"service_type"`
	Budget      string        `json:"budget,omitempty"`
	Deadline    string        `json:"deadline,omitempty"`
	Status      ProjectStatus `json:"status"`
	Client      int64         `json:"client"`
	ClientName  string        `json:"client_name"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewProject is the payload for creating a project.
type NewProject struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ServiceType string `json:"service_type"`
	Budget      string `json:"budget,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
}

// Task is a unit of work assigned to a developer within a project.
type Task struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Project           int64      `json:"project"`
	ProjectTitle      string     `json:"project_title"`
	AssignedTo        int64      `json:"assigned_to"`
	AssignedToName    string     `json:"assigned_to_name"`
	Budget            string     `json:"budget"`
	Deadline          string     `json:"deadline"`
	Status            TaskStatus `json:"status"`
	SubmissionGitLink string     `json:"submission_git_link,omitempty"`
	SubmissionNotes   string     `json:"submission_notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewTask is the payload for creating a task.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Project     int64  `json:"project"`
	AssignedTo  int64  `json:"assigned_to"`
	Budget      string `json:"budget"`
	Deadline    string `json:"deadline"`
}

// TaskUpdate carries the fields a developer may change on a task.
type TaskUpdate struct {
	Status            TaskStatus `json:"status,omitempty"`
	SubmissionGitLink string     `json:"submission_git_link,omitempty"`
	SubmissionNotes   string     `json:"submission_notes,omitempty"`
}

// ApplicationStatus is the review state of a project application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "Pending"
	ApplicationApproved ApplicationStatus = "Approved"
	ApplicationRejected ApplicationStatus = "Rejected"
)

// ProjectApplication is a developer's request to work on a project.
type ProjectApplication struct {
	ID            int64             `json:"id"`
	Project       int64             `json:"project"`
	ProjectTitle  string            `json:"project_title"`
	Developer     int64             `json:"developer"`
	DeveloperName string            `json:"developer_name"`
	CoverLetter   string            `json:"cover_letter,omitempty"`
	Status        ApplicationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Payment is an incoming client payment or an outgoing developer payout.
type Payment struct {
	ID          int64     `json:"id"`
	Payer       int64     `json:"payer"`
	PayerName   string    `json:"payer_name"`
	Payee       *int64    `json:"payee,omitempty"`
	PayeeName   string    `json:"payee_name,omitempty"`
	Amount      string    `json:"amount"`
	PaymentType string    `json:"payment_type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPayment is the payload for recording a payment.
type NewPayment struct {
	Payer       int64  `json:"payer"`
	Payee       *int64 `json:"payee,omitempty"`
	Amount      string `json:"amount"`
	PaymentType string `json:"payment_type"`
}

// AdminStats is the aggregate shown on the admin landing page.
type AdminStats struct {
	TotalClients      int `json:"total_clients"`
	TotalDevelopers   int `json:"total_developers"`
	PendingProjects   int `json:"pending_projects"`
	CompletedProjects int `json:"completed_projects"`
}
