package services

import (
	"io"

	"fabtrack/internal/fields"
	"fabtrack/internal/models"
	"fabtrack/internal/pagination"
)

// Actor identifies the authenticated caller of an operation. A nil *Actor
// means the operation ran without an authenticated user (e.g. system jobs).
type Actor struct {
	ID    uint
	Email string
	Role  models.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == models.RoleAdmin
}

// PartUpdate carries the full replacement values for one part row.
type PartUpdate struct {
	PartMark     string
	AssemblyMark string
	Material     string
	Thickness    string
	Quantity     int
	Length       *float64
	Width        *float64
	Height       *float64
	Weight       *float64
	Notes        string
}

// PartServicer defines the contract for part-record business logic.
type PartServicer interface {
	List(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Part], error)
	Get(id uint) (*models.Part, error)
	All() ([]models.Part, error)
	Update(id uint, vals PartUpdate, actor *Actor) (*models.Part, error)
	Delete(ids []uint, actor *Actor) (int64, error)
	ClearAll(actor *Actor) error
}

// IngestResult reports the outcome of processing one uploaded file.
type IngestResult struct {
	Success      bool   `json:"success"`
	ValidRows    int    `json:"validRows"`
	InvalidRows  int    `json:"invalidRows"`
	HasErrorFile bool   `json:"hasErrorFile"`
	Error        string `json:"error,omitempty"`
}

// IngestServicer defines the contract for the CSV ingestion pipeline.
type IngestServicer interface {
	ProcessFile(path, sourceName string, actor *Actor) (*IngestResult, error)
	ErrorReportPath() string
}

// AuditEntry is an audit log row with the acting user resolved for display.
type AuditEntry struct {
	models.AuditLog
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// AuditFilter holds optional filter parameters for listing audit entries.
type AuditFilter struct {
	Action string
	RowID  *uint
}

// AuditServicer defines the contract for audit recording and listing.
type AuditServicer interface {
	Record(userID *uint, action models.AuditAction, rowID *uint, diff string)
	RecordBulk(userID *uint, action models.AuditAction, rowIDs []uint)
	List(page pagination.PageRequest, filter AuditFilter, actor *Actor) (*pagination.PageResponse[AuditEntry], error)
}

// ExceptionServicer reconstructs pre-edit values from audit diffs and
// builds the exception exports.
type ExceptionServicer interface {
	OriginalValues(rowID uint) map[fields.Key]any
	InvalidRows() ([]models.Part, error)
	EditedRows() ([]models.Part, error)
	InvalidRowsCSV() (filename string, content []byte, err error)
	EditedRowsCSV() (filename string, content []byte, err error)
	UpdateValidationStatus(rowID uint, valid bool, errorCodes, errorMessages string)
}

// UserUpdate carries optional replacement values for a user record.
// Nil pointers leave the column untouched.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *models.Role
	IsActive  *bool
}

// UserServicer defines the contract for user management and authentication.
type UserServicer interface {
	Create(email, password, firstName, lastName string, role models.Role, sendEmail bool) (*models.User, error)
	List(search string, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(id uint, upd UserUpdate) (*models.User, error)
	Delete(id uint) error
	AttemptLogin(email, password string) (*models.User, error)
	ForgotPassword(email string) error
	ResetPassword(token, newPassword string) error
	ChangePassword(id uint, currentPassword, newPassword string) error
}

// LabelServicer renders part labels.
type LabelServicer interface {
	ZPL(part *models.Part) string
	PDF(part *models.Part, w io.Writer) error
	BulkZPL(parts []models.Part) string
	BulkPDF(parts []models.Part, w io.Writer) error
}

// Mailer sends operational email. Implementations are best-effort: a
// failure is logged by the caller, never fatal to the triggering request.
type Mailer interface {
	SendCredentials(email, password, firstName string) error
	SendPasswordReset(email, resetLink, firstName string) error
}
