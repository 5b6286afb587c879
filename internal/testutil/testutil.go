package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugh/flow/internal/auth"
	"github.com/hugh/flow/internal/database"
	"github.com/hugh/flow/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

func next() int64 {
	return seq.Add(1)
}

// SetupTestDB creates an in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateTestUser creates an active user holding the given global roles.
func CreateTestUser(t *testing.T, db *gorm.DB, roles ...string) *models.User {
	t.Helper()

	n := next()
	user := &models.User{
		Email:        fmt.Sprintf("user-%d@example.com", n),
		PasswordHash: "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva",
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User %d", n),
		Roles:        models.StringList(roles),
		IsActive:     true,
	}
	if user.Roles == nil {
		user.Roles = models.StringList{}
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestUserWithPassword is CreateTestUser with a real bcrypt hash.
func CreateTestUserWithPassword(t *testing.T, db *gorm.DB, password string, roles ...string) *models.User {
	t.Helper()

	user := CreateTestUser(t, db, roles...)
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := db.Model(user).Update("password_hash", hash).Error; err != nil {
		t.Fatalf("failed to set password: %v", err)
	}
	user.PasswordHash = hash
	return user
}

// CreateTestOrg creates an active organization created by creator.
func CreateTestOrg(t *testing.T, db *gorm.DB, name string, creator *models.User) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Name:        name,
		Slug:        fmt.Sprintf("org-%d", next()),
		IsActive:    true,
		CreatedByID: creator.ID,
	}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// SetOrgAdmin points the organization's admin at user.
func SetOrgAdmin(t *testing.T, db *gorm.DB, org *models.Organization, user *models.User) {
	t.Helper()
	org.OrgAdminID = &user.ID
	if err := db.Save(org).Error; err != nil {
		t.Fatalf("failed to set org admin: %v", err)
	}
}

// DeactivateOrg flips the organization's active flag off.
func DeactivateOrg(t *testing.T, db *gorm.DB, org *models.Organization) {
	t.Helper()
	org.IsActive = false
	if err := db.Model(org).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate org: %v", err)
	}
}

func AddOrgMember(t *testing.T, db *gorm.DB, org *models.Organization, user *models.User, role string) *models.OrganizationMember {
	t.Helper()

	m := &models.OrganizationMember{OrganizationID: org.ID, UserID: user.ID, Role: role}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to add org member: %v", err)
	}
	return m
}

// CreateTestProject creates an active project; manager may be nil.
func CreateTestProject(t *testing.T, db *gorm.DB, org *models.Organization, creator, manager *models.User) *models.Project {
	t.Helper()

	p := &models.Project{
		OrganizationID: org.ID,
		Name:           fmt.Sprintf("Project %d", next()),
		IsActive:       true,
		CreatedByID:    creator.ID,
	}
	if manager != nil {
		p.ProjectManagerID = &manager.ID
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

func AddProjectMember(t *testing.T, db *gorm.DB, project *models.Project, user *models.User, role string) *models.ProjectMember {
	t.Helper()

	m := &models.ProjectMember{ProjectID: project.ID, UserID: user.ID, Role: role}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to add project member: %v", err)
	}
	return m
}

// TaskOpts customizes CreateTestTask. Zero values mean todo/medium with no
// due date and no assignee.
type TaskOpts struct {
	Status   string
	Priority string
	Due      *time.Time
	Assignee *models.User
	Updated  time.Time
}

func CreateTestTask(t *testing.T, db *gorm.DB, project *models.Project, creator *models.User, opts TaskOpts) *models.Task {
	t.Helper()

	task := &models.Task{
		ProjectID:   project.ID,
		Title:       fmt.Sprintf("Task %d", next()),
		Status:      "todo",
		Priority:    "medium",
		DueDate:     opts.Due,
		CreatedByID: creator.ID,
	}
	if opts.Status != "" {
		task.Status = opts.Status
	}
	if opts.Priority != "" {
		task.Priority = opts.Priority
	}
	if opts.Assignee != nil {
		task.AssignedToID = &opts.Assignee.ID
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("failed to create test task: %v", err)
	}
	if !opts.Updated.IsZero() {
		if err := db.Model(task).UpdateColumn("updated_at", opts.Updated).Error; err != nil {
			t.Fatalf("failed to set updated_at: %v", err)
		}
		task.UpdatedAt = opts.Updated
	}
	return task
}

func CreateTestWebhook(t *testing.T, db *gorm.DB, org *models.Organization, url string, eventTypes, targetRoles []string) *models.WebhookConfig {
	t.Helper()

	cfg := &models.WebhookConfig{
		OrganizationID: org.ID,
		URL:            url,
		IsActive:       true,
		EventTypes:     models.StringList(eventTypes),
		TargetRoles:    models.StringList(targetRoles),
	}
	if err := db.Create(cfg).Error; err != nil {
		t.Fatalf("failed to create test webhook: %v", err)
	}
	return cfg
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email, user.Roles)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds the common fixture: a database, a JWT service, an
// organization administered by Admin, and Admin's token.
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Org        *models.Organization
	Admin      *models.User
	Token      string
}

// NewTestContext creates a complete test setup with DB, org, admin and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	admin := CreateTestUser(t, db, models.RoleOrgAdmin)
	org := CreateTestOrg(t, db, "Test Organization", admin)
	SetOrgAdmin(t, db, org, admin)
	AddOrgMember(t, db, org, admin, models.RoleOrgAdmin)
	token := GenerateTestToken(t, jwtService, admin)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Org:        org,
		Admin:      admin,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
