// Package service owns the per-user registry and the ingest fallback chain.
package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"vibesense-service/internal/models"
	"vibesense-service/internal/stabilizer"
)

// Repository keeps the most recent reading for one user. It is guarded by
// the owning userContext mutex, so it carries no lock of its own.
type Repository struct {
	latest *models.StableReading
}

// Save overwrites the current reading.
func (r *Repository) Save(state models.StableReading) {
	r.latest = &state
}

// Latest returns the current reading, or nil before the first save.
func (r *Repository) Latest() *models.StableReading {
	return r.latest
}

// userContext pairs one user's stabilizer with its repository. The mutex
// serializes all access for that key; different keys never contend.
type userContext struct {
	mu   sync.Mutex
	stab *stabilizer.Stabilizer
	repo *Repository
}

// Service is the registry of per-user contexts, created lazily on first
// contact. Contexts are never evicted; Reset is the only removal path.
type Service struct {
	cfg    stabilizer.Config
	logger *zap.Logger

	mu    sync.RWMutex
	users map[string]*userContext
}

// New validates the shared config once and returns an empty registry.
func New(cfg stabilizer.Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		logger: logger,
		users:  map[string]*userContext{},
	}, nil
}

// context returns the user's context, constructing it on first contact.
func (s *Service) context(userID string) *userContext {
	s.mu.RLock()
	ctx := s.users[userID]
	s.mu.RUnlock()
	if ctx != nil {
		return ctx
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: another goroutine may have created it between locks.
	if ctx = s.users[userID]; ctx != nil {
		return ctx
	}
	stab, err := stabilizer.New(s.cfg)
	if err != nil {
		// Config was validated in New; this cannot fire for a live service.
		panic(err)
	}
	ctx = &userContext{stab: stab, repo: &Repository{}}
	s.users[userID] = ctx
	s.logger.Info("created user context", zap.String("user_id", userID))
	return ctx
}

// Ingest absorbs one sample and always returns a usable current reading:
// the freshly published one, the previous stable reading when the sample was
// suppressed, or an ad hoc reading built from the raw sample if no prior
// state exists for the user. The verdict reports what the stabilizer did.
func (s *Service) Ingest(req models.IngestRequest) (models.StableReading, stabilizer.Verdict) {
	userID := req.UserID
	if userID == "" {
		userID = models.DefaultUser
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	meta := req.Metadata
	if meta.TimeOfDay == "" {
		meta.TimeOfDay = models.TimeOfDayBucket(ts)
	}

	ctx := s.context(userID)
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	state, verdict := ctx.stab.Push(models.RawSample{
		UserID:     userID,
		BPM:        req.BPM,
		Mood:       req.Mood,
		ObservedAt: ts,
		Metadata:   meta,
	})

	if state == nil {
		// Suppressed: surface the current stable state instead.
		if latest := ctx.stab.Latest(); latest != nil {
			s.logger.Debug("sample suppressed",
				zap.String("user_id", userID),
				zap.String("reason", verdict.String()),
				zap.Float64("bpm", req.BPM))
			return *latest, verdict
		}
		if latest := ctx.repo.Latest(); latest != nil {
			return *latest, verdict
		}
		// No prior state at all: fabricate a reading straight from the raw
		// sample so the caller never has to special-case "no reading yet".
		fallback := models.NewStableReading(userID, req.BPM, req.Mood, ts, meta)
		ctx.repo.Save(fallback)
		return fallback, verdict
	}

	ctx.repo.Save(*state)
	s.logger.Info("published stable reading",
		zap.String("user_id", userID),
		zap.Float64("bpm", state.BPM),
		zap.String("zone", string(state.Zone)))
	return *state, verdict
}

// Latest returns the current stable reading for a user, or nil if the user
// key has never been ingested.
func (s *Service) Latest(userID string) *models.StableReading {
	if userID == "" {
		userID = models.DefaultUser
	}
	s.mu.RLock()
	ctx := s.users[userID]
	s.mu.RUnlock()
	if ctx == nil {
		return nil
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if latest := ctx.stab.Latest(); latest != nil {
		return latest
	}
	return ctx.repo.Latest()
}

// Reset discards a user's stabilizer and repository state entirely, so the
// next ingest behaves like first-ever contact.
func (s *Service) Reset(userID string) {
	if userID == "" {
		userID = models.DefaultUser
	}
	s.mu.Lock()
	delete(s.users, userID)
	s.mu.Unlock()
	s.logger.Info("reset user context", zap.String("user_id", userID))
}

// ActiveUsers reports how many user contexts the registry currently holds.
func (s *Service) ActiveUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
