package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/repository"
)

const historyTitleLimit = 80

// HistoryService exposes a user's own ledger.
type HistoryService interface {
	List(ctx context.Context, userID uint) ([]dto.HistoryResponse, error)
}

type historyService struct {
	store repository.Store
}

// NewHistoryService constructs a history reader.
func NewHistoryService(store repository.Store) HistoryService {
	return &historyService{store: store}
}

type historyObjectKey struct {
	kind models.ObjectKind
	id   uint
}

// List returns entries newest first, each with a summary of the object it
// refers to when that object still exists.
func (s *historyService) List(ctx context.Context, userID uint) ([]dto.HistoryResponse, error) {
	repos := s.store.Repositories()
	if _, err := repos.Users.GetByID(ctx, userID); err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	entries, err := repos.History.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageFault(err)
	}

	resolved := make(map[historyObjectKey]*dto.HistoryObject)
	out := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		response := dto.NewHistoryResponse(entry)
		kind := entry.ActionType.ObjectKind()
		if entry.ObjectID != nil && kind != models.ObjectNone {
			key := historyObjectKey{kind: kind, id: *entry.ObjectID}
			object, seen := resolved[key]
			if !seen {
				object, err = resolveHistoryObject(ctx, repos, kind, *entry.ObjectID)
				if err != nil {
					return nil, storageFault(err)
				}
				resolved[key] = object
			}
			response.Object = object
		}
		out = append(out, response)
	}
	return out, nil
}

// resolveHistoryObject loads the entry's object, or nil when it no longer exists.
func resolveHistoryObject(ctx context.Context, repos repository.Repositories, kind models.ObjectKind, id uint) (*dto.HistoryObject, error) {
	var (
		object *dto.HistoryObject
		err    error
	)
	switch kind {
	case models.ObjectUser:
		var user models.User
		if user, err = repos.Users.GetByID(ctx, id); err == nil {
			object = &dto.HistoryObject{ID: user.ID, Title: user.Name}
		}
	case models.ObjectDepartment:
		var department models.Department
		if department, err = repos.Courses.GetDepartment(ctx, id); err == nil {
			object = &dto.HistoryObject{ID: department.ID, Title: department.Name}
		}
	case models.ObjectCourse:
		var course models.Course
		if course, err = repos.Courses.GetByID(ctx, id); err == nil {
			object = &dto.HistoryObject{ID: course.ID, Title: fmt.Sprintf("%s %s", course.Code, course.Name)}
		}
	case models.ObjectResource:
		var resource models.Resource
		if resource, err = repos.Resources.GetByID(ctx, id); err == nil {
			courseID := resource.CourseID
			object = &dto.HistoryObject{ID: resource.ID, Title: resource.Name, CourseID: &courseID}
		}
	case models.ObjectInteraction:
		var interaction models.Interaction
		if interaction, err = repos.Interactions.GetByID(ctx, id); err == nil {
			courseID := interaction.CourseID
			object = &dto.HistoryObject{ID: interaction.ID, Title: truncateTitle(interaction.Content), CourseID: &courseID}
		}
	default:
		return nil, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return object, nil
}

func truncateTitle(content string) string {
	if utf8.RuneCountInString(content) <= historyTitleLimit {
		return content
	}
	runes := []rune(content)
	return string(runes[:historyTitleLimit-3]) + "..."
}
