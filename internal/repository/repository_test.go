package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

func TestHistoryLatestBreaksTiesByInsertionOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	objectID := uint(9)

	kinds := []models.ActionType{models.ActionLikeResource, models.ActionUnlikeResource}
	for _, action := range []models.ActionType{models.ActionLikeResource, models.ActionUnlikeResource, models.ActionLikeResource} {
		require.NoError(t, repo.Append(ctx, &models.History{UserID: 1, ActionType: action, ObjectID: &objectID, Timestamp: ts}))
	}

	latest, err := repo.Latest(ctx, 1, objectID, kinds)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, models.ActionLikeResource, latest.ActionType)
	require.Equal(t, uint(3), latest.ID)

	entries, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, uint(3), entries[0].ID)
	require.Equal(t, uint(1), entries[2].ID)
}

func TestHistoryLatestPrefersNewerTimestamp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()
	objectID := uint(4)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, &models.History{UserID: 1, ActionType: models.ActionDislikeInteraction, ObjectID: &objectID, Timestamp: ts.Add(time.Hour)}))
	require.NoError(t, repo.Append(ctx, &models.History{UserID: 1, ActionType: models.ActionUndislikeInteraction, ObjectID: &objectID, Timestamp: ts}))

	latest, err := repo.Latest(ctx, 1, objectID, []models.ActionType{models.ActionDislikeInteraction, models.ActionUndislikeInteraction})
	require.NoError(t, err)
	require.Equal(t, models.ActionDislikeInteraction, latest.ActionType)
}

func TestHistoryLatestEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepository(db)
	ctx := context.Background()
	objectID := uint(4)

	latest, err := repo.Latest(ctx, 1, objectID, nil)
	require.NoError(t, err)
	require.Nil(t, latest)

	require.NoError(t, repo.Append(ctx, &models.History{UserID: 1, ActionType: models.ActionViewResource, ObjectID: &objectID, Timestamp: time.Now()}))
	latest, err = repo.Latest(ctx, 1, objectID, []models.ActionType{models.ActionLikeResource})
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestHistoryAppendRejectsPersistedEntries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepository(db)
	err := repo.Append(context.Background(), &models.History{ID: 5, UserID: 1, ActionType: models.ActionViewResource, Timestamp: time.Now()})
	require.Error(t, err)
}

func TestUserAddActivity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := models.User{Name: "ana", Email: "ana@example.com", Role: models.UserRoleUser}
	require.NoError(t, repo.Create(ctx, &user))

	require.NoError(t, repo.AddActivity(ctx, user.ID, 3))
	require.NoError(t, repo.AddActivity(ctx, user.ID, -7))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, -4, stored.Activity)

	err = repo.AddActivity(ctx, 999, 1)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestStoreRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	user := models.User{Name: "bo", Email: "bo@example.com", Role: models.UserRoleUser}
	require.NoError(t, store.Repositories().Users.Create(ctx, &user))

	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(repos Repositories) error {
		require.NoError(t, repos.Users.AddActivity(ctx, user.ID, 10))
		require.NoError(t, repos.History.Append(ctx, &models.History{UserID: user.ID, ActionType: models.ActionCreateResource, Timestamp: time.Now()}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := store.Repositories().Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.Activity)

	entries, err := store.Repositories().History.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestInteractionFindByCourseAndUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInteractionRepository(db)
	ctx := context.Background()

	found, err := repo.FindByCourseAndUser(ctx, 1, 1)
	require.NoError(t, err)
	require.Nil(t, found)

	require.NoError(t, repo.Create(ctx, &models.Interaction{CourseID: 1, UserID: 1, Content: "hi"}))
	found, err = repo.FindByCourseAndUser(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "hi", found.Content)

	err = repo.Create(ctx, &models.Interaction{CourseID: 1, UserID: 1, Content: "again"})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, repo.Delete(ctx, found.ID))
	require.True(t, errors.Is(repo.Delete(ctx, found.ID), gorm.ErrRecordNotFound))
}

func TestResourceListsAndCourseExists(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Department{Name: "Maths"}).Error)
	course := models.Course{Code: "MA1", Name: "Calculus", DepartmentID: 1}
	require.NoError(t, db.Create(&course).Error)

	exists, err := NewCourseRepository(db).Exists(ctx, course.ID)
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = NewCourseRepository(db).Exists(ctx, 999)
	require.NoError(t, err)
	require.False(t, exists)

	resources := NewResourceRepository(db)
	resource := models.Resource{
		Name:         "Sheet 1",
		ResourceType: models.ResourceTypeAssignment,
		File:         models.ResourceFile{FileType: models.FileTypePDF, FileSizeMB: 0.2, FilePath: "resources/1/a.pdf"},
		CourseID:     course.ID,
		UserID:       3,
	}
	require.NoError(t, resources.Create(ctx, &resource))

	byCourse, err := resources.ListByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, byCourse, 1)
	require.Equal(t, "resources/1/a.pdf", byCourse[0].File.FilePath)

	byUser, err := resources.ListByUser(ctx, 3)
	require.NoError(t, err)
	require.Len(t, byUser, 1)

	require.NoError(t, resources.Delete(ctx, resource.ID))
	_, err = resources.GetByID(ctx, resource.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
