package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/snapflowhq/snapflow/internal/experience"
)

var ErrNotFound = errors.New("not found")

// experienceRecord is the stored form of an experience: independently
// versioned draft and published snapshots. A nil published version means
// the experience was never published.
type experienceRecord struct {
	ID               string
	Name             string
	Profile          experience.Profile
	DraftVersion     int64
	PublishedVersion *int64
	Draft            experience.Snapshot
	Published        *experience.Snapshot
	CreatedAt        string
	UpdatedAt        string
}

// eventRecord carries the same draft/publish gate over slot wiring.
type eventRecord struct {
	ID               string
	Name             string
	DraftVersion     int64
	PublishedVersion *int64
	Draft            experience.SlotMap
	Published        *experience.SlotMap
	CreatedAt        string
	UpdatedAt        string
}

type guestRecord struct {
	ID        string
	Token     string
	Name      string
	Completed []string
	CreatedAt string
}

type sessionRecord struct {
	ID               string
	EventID          string
	ExperienceID     string
	GuestID          string
	Slot             experience.Slot
	Mode             experience.Mode
	Source           experience.Source
	Status           experience.SessionStatus
	StepIndex        int
	Responses        experience.ResponseSet
	Outputs          experience.OutputSet
	PregateSessionID string
	CreatedAt        string
	UpdatedAt        string
	CompletedAt      *string
}

// Store is the per-project persistence surface.
type Store interface {
	ListExperiences(ctx context.Context) ([]experienceRecord, error)
	CreateExperience(ctx context.Context, name string, profile experience.Profile, draft experience.Snapshot) (experienceRecord, error)
	GetExperience(ctx context.Context, id string) (experienceRecord, error)
	UpdateExperienceDraft(ctx context.Context, id, name string, draft experience.Snapshot) (experienceRecord, error)
	PublishExperience(ctx context.Context, id string) (experienceRecord, error)
	DeleteExperience(ctx context.Context, id string) error
	ExperienceHasSessions(ctx context.Context, id string) (bool, error)

	ListEvents(ctx context.Context) ([]eventRecord, error)
	CreateEvent(ctx context.Context, name string, draft experience.SlotMap) (eventRecord, error)
	GetEvent(ctx context.Context, id string) (eventRecord, error)
	UpdateEventDraft(ctx context.Context, id, name string, draft experience.SlotMap) (eventRecord, error)
	PublishEvent(ctx context.Context, id string) (eventRecord, error)
	DeleteEvent(ctx context.Context, id string) error
	EventsReferencing(ctx context.Context, experienceID string) (bool, error)
	EventHasSessions(ctx context.Context, id string) (bool, error)

	CreateGuest(ctx context.Context, name string) (guestRecord, error)
	GuestFromToken(ctx context.Context, token string) (guestRecord, error)
	MarkCompleted(ctx context.Context, guestID, experienceID string) error

	CreateSession(ctx context.Context, s sessionRecord) (sessionRecord, error)
	GetSession(ctx context.Context, id string) (sessionRecord, error)
	SaveProgress(ctx context.Context, id string, stepIndex int, status experience.SessionStatus, responses experience.ResponseSet, outputs experience.OutputSet, completedAt *string) error
	SessionsByExperience(ctx context.Context, experienceID string) ([]sessionRecord, error)
}

func newID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
