package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"task-platform/backend/internal/models"

	"github.com/gofrs/uuid"
)

func TestTask_OwnershipPath(t *testing.T) {
	projectID := uuid.Must(uuid.NewV4())
	userID := uuid.Must(uuid.NewV4())

	projectTask := models.Task{ID: uuid.Must(uuid.NewV4()), ProjectID: &projectID, Title: "Project task"}
	if !projectTask.HasProject() || projectTask.IsStandalone() {
		t.Errorf("Expected task with project_id to be a project task")
	}

	standalone := models.Task{ID: uuid.Must(uuid.NewV4()), UserID: &userID, Title: "Standalone task"}
	if standalone.HasProject() || !standalone.IsStandalone() {
		t.Errorf("Expected task without project_id to be standalone")
	}
}

func TestUser_HasVerifiedEmail(t *testing.T) {
	user := models.User{Email: "someone@example.com"}
	if user.HasVerifiedEmail() {
		t.Error("Expected unverified user")
	}

	now := time.Now()
	user.EmailVerifiedAt = &now
	if !user.HasVerifiedEmail() {
		t.Error("Expected verified user")
	}
}

func TestUser_PasswordNotSerialized(t *testing.T) {
	user := models.User{Email: "someone@example.com", Password: "hashed"}
	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("Failed to marshal user: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal user: %v", err)
	}
	if _, exists := decoded["password"]; exists {
		t.Error("Password hash must not be serialized")
	}
}

func TestStatusEnums(t *testing.T) {
	for _, status := range []string{"pending", "in_progress", "completed"} {
		if !models.TaskStatus(status).Valid() {
			t.Errorf("Expected task status '%s' to be valid", status)
		}
	}
	if models.TaskStatus("cancelled").Valid() {
		t.Error("Expected task status 'cancelled' to be invalid")
	}

	for _, priority := range []string{"low", "medium", "high", "urgent"} {
		if !models.TaskPriority(priority).Valid() {
			t.Errorf("Expected priority '%s' to be valid", priority)
		}
	}
	if models.TaskPriority("critical").Valid() {
		t.Error("Expected priority 'critical' to be invalid")
	}

	for _, status := range []string{"active", "completed", "on_hold", "cancelled"} {
		if !models.ProjectStatus(status).Valid() {
			t.Errorf("Expected project status '%s' to be valid", status)
		}
	}
	if models.ProjectStatus("pending").Valid() {
		t.Error("Expected project status 'pending' to be invalid")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "2026-03-01", expected: "2026-03-01"},
		{input: "2026-03-01T23:30:00Z", expected: "2026-03-01"},
		{input: "2026-03-01T23:30:00-05:00", expected: "2026-03-02"},
		{input: "03/01/2026", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			date, err := models.ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if date.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, date.String())
			}
		})
	}
}

func TestDate_JSON(t *testing.T) {
	date := models.NewDate(time.Date(2026, 10, 16, 15, 4, 5, 0, time.UTC))
	data, err := json.Marshal(date)
	if err != nil {
		t.Fatalf("Failed to marshal date: %v", err)
	}
	if string(data) != `"2026-10-16"` {
		t.Errorf("Expected \"2026-10-16\", got %s", data)
	}
}

func TestDate_Scan(t *testing.T) {
	var date models.Date
	if err := date.Scan("2026-10-16 00:00:00+00:00"); err != nil {
		t.Fatalf("Failed to scan string: %v", err)
	}
	if date.String() != "2026-10-16" {
		t.Errorf("Expected 2026-10-16, got %s", date.String())
	}

	if err := date.Scan(time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Failed to scan time: %v", err)
	}
	if date.String() != "2025-01-02" {
		t.Errorf("Expected 2025-01-02, got %s", date.String())
	}
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	var patch struct {
		Title     models.Optional[string]      `json:"title"`
		ProjectID models.Optional[uuid.UUID]   `json:"project_id"`
		DueDate   models.Optional[models.Date] `json:"due_date"`
	}

	if err := json.Unmarshal([]byte(`{"project_id": null, "due_date": "2026-12-01"}`), &patch); err != nil {
		t.Fatalf("Failed to unmarshal patch: %v", err)
	}

	if patch.Title.Set {
		t.Error("Expected absent title to be unset")
	}
	if !patch.ProjectID.Set || !patch.ProjectID.Null {
		t.Error("Expected explicit null project_id")
	}
	if !patch.DueDate.HasValue() || patch.DueDate.Value.String() != "2026-12-01" {
		t.Errorf("Expected due_date 2026-12-01, got %+v", patch.DueDate)
	}
}
