package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// ActionType tags a ledger entry. Codes are persisted and must never be reused.
type ActionType uint8

const (
	ActionCreateUser           ActionType = 21
	ActionUpdateUser           ActionType = 22
	ActionCreateDepartment     ActionType = 23
	ActionUpdateDepartment     ActionType = 24
	ActionCreateCourse         ActionType = 25
	ActionUpdateCourse         ActionType = 26
	ActionCreateResource       ActionType = 27
	ActionUpdateResource       ActionType = 28
	ActionCreateInteraction    ActionType = 29
	ActionDeleteInteraction    ActionType = 30
	ActionLikeInteraction      ActionType = 31
	ActionUnlikeInteraction    ActionType = 32
	ActionDislikeInteraction   ActionType = 33
	ActionUndislikeInteraction ActionType = 34
	ActionRateCourse           ActionType = 35
	ActionViewResource         ActionType = 36
	ActionDeleteResource       ActionType = 37
	ActionLikeResource         ActionType = 38
	ActionUnlikeResource       ActionType = 39
	ActionDislikeResource      ActionType = 40
	ActionUndislikeResource    ActionType = 41
	ActionUpdateInteraction    ActionType = 42
)

var actionNames = map[ActionType]string{
	ActionCreateUser:           "CREATE_USER",
	ActionUpdateUser:           "UPDATE_USER",
	ActionCreateDepartment:     "CREATE_DEPARTMENT",
	ActionUpdateDepartment:     "UPDATE_DEPARTMENT",
	ActionCreateCourse:         "CREATE_COURSE",
	ActionUpdateCourse:         "UPDATE_COURSE",
	ActionCreateResource:       "CREATE_RESOURCE",
	ActionUpdateResource:       "UPDATE_RESOURCE",
	ActionCreateInteraction:    "CREATE_INTERACTION",
	ActionDeleteInteraction:    "DELETE_INTERACTION",
	ActionLikeInteraction:      "LIKE_INTERACTION",
	ActionUnlikeInteraction:    "UNLIKE_INTERACTION",
	ActionDislikeInteraction:   "DISLIKE_INTERACTION",
	ActionUndislikeInteraction: "UNDISLIKE_INTERACTION",
	ActionRateCourse:           "RATE_COURSE",
	ActionViewResource:         "VIEW_RESOURCE",
	ActionDeleteResource:       "DELETE_RESOURCE",
	ActionLikeResource:         "LIKE_RESOURCE",
	ActionUnlikeResource:       "UNLIKE_RESOURCE",
	ActionDislikeResource:      "DISLIKE_RESOURCE",
	ActionUndislikeResource:    "UNDISLIKE_RESOURCE",
	ActionUpdateInteraction:    "UPDATE_INTERACTION",
}

func (a ActionType) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ACTION_%d", uint8(a))
}

// Valid reports whether a is one of the declared action types.
func (a ActionType) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

func (a ActionType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ActionType) UnmarshalText(text []byte) error {
	for code, name := range actionNames {
		if name == string(text) {
			*a = code
			return nil
		}
	}
	return fmt.Errorf("unknown action type %q", string(text))
}

// Value stores the numeric code.
func (a ActionType) Value() (driver.Value, error) {
	return int64(a), nil
}

func (a *ActionType) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*a = ActionType(v)
	case []byte:
		n, err := strconv.ParseUint(string(v), 10, 8)
		if err != nil {
			return err
		}
		*a = ActionType(n)
	case string:
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return err
		}
		*a = ActionType(n)
	default:
		return fmt.Errorf("cannot scan %T into ActionType", src)
	}
	return nil
}

// ObjectKind names the entity family a ledger entry's object id points into.
type ObjectKind string

const (
	ObjectNone        ObjectKind = ""
	ObjectUser        ObjectKind = "user"
	ObjectDepartment  ObjectKind = "department"
	ObjectCourse      ObjectKind = "course"
	ObjectResource    ObjectKind = "resource"
	ObjectInteraction ObjectKind = "interaction"
)

// ObjectKind reports what the entry's object id refers to.
func (a ActionType) ObjectKind() ObjectKind {
	switch a {
	case ActionCreateUser, ActionUpdateUser:
		return ObjectUser
	case ActionCreateDepartment, ActionUpdateDepartment:
		return ObjectDepartment
	case ActionCreateCourse, ActionUpdateCourse, ActionRateCourse:
		return ObjectCourse
	case ActionCreateResource, ActionUpdateResource, ActionDeleteResource, ActionViewResource,
		ActionLikeResource, ActionUnlikeResource, ActionDislikeResource, ActionUndislikeResource:
		return ObjectResource
	case ActionCreateInteraction, ActionUpdateInteraction, ActionDeleteInteraction,
		ActionLikeInteraction, ActionUnlikeInteraction, ActionDislikeInteraction, ActionUndislikeInteraction:
		return ObjectInteraction
	default:
		return ObjectNone
	}
}

// TargetKind identifies which entity family an engagement refers to.
type TargetKind uint8

const (
	TargetInteraction TargetKind = iota + 1
	TargetResource
)

func (k TargetKind) String() string {
	switch k {
	case TargetInteraction:
		return "interaction"
	case TargetResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Reaction is one of the two mutually exclusive engagements a user can hold.
type Reaction uint8

const (
	ReactionLike Reaction = iota + 1
	ReactionDislike
)

func (r Reaction) String() string {
	switch r {
	case ReactionLike:
		return "like"
	case ReactionDislike:
		return "dislike"
	default:
		return "unknown"
	}
}

// Opposite returns the reaction that r excludes.
func (r Reaction) Opposite() Reaction {
	if r == ReactionLike {
		return ReactionDislike
	}
	return ReactionLike
}

// ReactionKinds is the pair of ledger actions that switch one reaction on and off.
type ReactionKinds struct {
	On  ActionType
	Off ActionType
}

// Set returns the kinds as a slice suitable for ledger queries.
func (k ReactionKinds) Set() []ActionType {
	return []ActionType{k.On, k.Off}
}

// ReactionActions returns the ledger kinds for a reaction on a target kind.
func ReactionActions(kind TargetKind, reaction Reaction) (ReactionKinds, error) {
	switch kind {
	case TargetInteraction:
		switch reaction {
		case ReactionLike:
			return ReactionKinds{On: ActionLikeInteraction, Off: ActionUnlikeInteraction}, nil
		case ReactionDislike:
			return ReactionKinds{On: ActionDislikeInteraction, Off: ActionUndislikeInteraction}, nil
		}
	case TargetResource:
		switch reaction {
		case ReactionLike:
			return ReactionKinds{On: ActionLikeResource, Off: ActionUnlikeResource}, nil
		case ReactionDislike:
			return ReactionKinds{On: ActionDislikeResource, Off: ActionUndislikeResource}, nil
		}
	}
	return ReactionKinds{}, fmt.Errorf("no actions for %s %s", kind, reaction)
}

// History is one immutable entry of the activity ledger.
type History struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UserID     uint              `gorm:"not null;index:idx_history_user_object,priority:1" json:"user_id"`
	ActionType ActionType        `gorm:"not null;index:idx_history_user_object,priority:3" json:"action_type"`
	ObjectID   *uint             `gorm:"index:idx_history_user_object,priority:2" json:"object_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	Timestamp  time.Time         `gorm:"not null;index" json:"timestamp"`
}

// TableName keeps the ledger table name stable.
func (History) TableName() string {
	return "histories"
}

// EngagementTarget is an entity carrying like and dislike counters.
type EngagementTarget interface {
	TargetID() uint
	OwnerID() uint
	Counters() (likes, dislikes *int)
}
