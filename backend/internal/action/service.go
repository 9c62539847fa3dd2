// Package action implements the user-facing mutations and reads of the
// community: toggles, the badge ledger, history and notifications. Every
// operation resolves its caller from the request context and returns either a
// result or an *Error.
package action

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"community-service/backend/internal/auth"
	"community-service/backend/internal/events"
	"community-service/backend/internal/repo"
)

type Deps struct {
	Procedures    repo.Procedures
	Edges         repo.EdgeRepo
	Profiles      repo.ProfileRepo
	Badges        repo.BadgeRepo
	History       repo.HistoryRepo
	Notifications repo.NotificationRepo
	Counters      repo.CounterCache
	StoreCache    repo.StoreCache
	Publisher     events.Publisher
	Log           *zap.Logger

	// PublishTimeout bounds how long an action waits for event queue space.
	PublishTimeout time.Duration
	Now            func() time.Time
}

type Service struct {
	Deps
	log *zap.Logger
}

// NewService fails when a repository or cache is missing; Log, Publisher,
// PublishTimeout and Now have defaults.
func NewService(d Deps) (*Service, error) {
	required := []struct {
		name string
		set  bool
	}{
		{"Procedures", d.Procedures != nil},
		{"Edges", d.Edges != nil},
		{"Profiles", d.Profiles != nil},
		{"Badges", d.Badges != nil},
		{"History", d.History != nil},
		{"Notifications", d.Notifications != nil},
		{"Counters", d.Counters != nil},
		{"StoreCache", d.StoreCache != nil},
	}
	for _, r := range required {
		if !r.set {
			return nil, fmt.Errorf("action: %s is required", r.name)
		}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.PublishTimeout <= 0 {
		d.PublishTimeout = 50 * time.Millisecond
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{Deps: d, log: d.Log.Named("action")}, nil
}

func (s *Service) caller(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.CallerFrom(ctx)
	if !ok {
		return auth.Identity{}, errUnauthenticated
	}
	return id, nil
}
