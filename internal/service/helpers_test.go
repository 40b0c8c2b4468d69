package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/config"
	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.Course{},
		&models.Resource{},
		&models.Interaction{},
		&models.History{},
	))
	return db
}

func testActivity() config.ActivityConfig {
	return config.ActivityConfig{
		Resource: config.ResourceActivity{
			Add: 10, Delete: -5, Like: 2, Unlike: -1, Dislike: -1, Undislike: 1, View: 1,
		},
		Interaction: config.InteractionActivity{
			Add: 10, Update: 0, Delete: -5, Like: 2, Unlike: -1, Dislike: -1, Undislike: 1, Rate: 1,
		},
	}
}

func seedUser(t *testing.T, db *gorm.DB, name string, role models.UserRole, activity int) models.User {
	t.Helper()
	user := models.User{Name: name, Email: name + "@example.com", Role: role, Activity: activity}
	require.NoError(t, db.Create(&user).Error)
	// GORM skips zero values that carry a column default.
	require.NoError(t, db.Model(&user).UpdateColumn("activity", activity).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB) models.Course {
	t.Helper()
	department := models.Department{Name: "Computer Science"}
	require.NoError(t, db.Create(&department).Error)
	course := models.Course{Code: "CS101", Name: "Intro to Programming", DepartmentID: department.ID, Credits: 6}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func seedResource(t *testing.T, db *gorm.DB, courseID, ownerID uint) models.Resource {
	t.Helper()
	resource := models.Resource{
		Name:         "Midterm 2023",
		ResourceType: models.ResourceTypeExam,
		File:         models.ResourceFile{FileType: models.FileTypePDF, FileSizeMB: 1.5, FilePath: fmt.Sprintf("resources/%d/seed.pdf", courseID)},
		CourseID:     courseID,
		UserID:       ownerID,
	}
	require.NoError(t, db.Create(&resource).Error)
	return resource
}

func seedInteraction(t *testing.T, db *gorm.DB, courseID, ownerID uint) models.Interaction {
	t.Helper()
	interaction := models.Interaction{CourseID: courseID, UserID: ownerID, Content: "Great course"}
	require.NoError(t, db.Create(&interaction).Error)
	return interaction
}

func activityOf(t *testing.T, db *gorm.DB, userID uint) int {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, userID).Error)
	return user.Activity
}

func historyKinds(t *testing.T, db *gorm.DB, userID uint) []models.ActionType {
	t.Helper()
	entries, err := repository.NewHistoryRepository(db).ListByUser(context.Background(), userID)
	require.NoError(t, err)
	kinds := make([]models.ActionType, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		kinds = append(kinds, entries[i].ActionType)
	}
	return kinds
}

// memoryBlobStore is an in-memory BlobStore with injectable failures.
type memoryBlobStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
	onDelete  func(path string)
	deleted   []string
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: map[string][]byte{}}
}

func (m *memoryBlobStore) Put(ctx context.Context, path, contentType string, body io.Reader) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
	return nil
}

func (m *memoryBlobStore) Delete(ctx context.Context, path string) error {
	if m.onDelete != nil {
		m.onDelete(path)
	}
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	m.deleted = append(m.deleted, path)
	return nil
}

func (m *memoryBlobStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBlobStore) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}

func (m *memoryBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	mu      sync.Mutex
	actions []string
}

func (p *recordingPublisher) Publish(ctx context.Context, event dto.ActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, event.Action)
	return nil
}
