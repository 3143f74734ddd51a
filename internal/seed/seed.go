package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/middleware"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	RecordsPerUser int
	// MaxDays spreads taken_at over the last N days.
	MaxDays    int
	SkipBcrypt bool
	// RandomSeed makes generated data reproducible when non-zero.
	RandomSeed int64
}

// Summary reports what a seeding run created.
type Summary struct {
	Users    int
	Records  int
	Friends  int
	Requests int
}

// Seeder populates a database with demo users, records and relationships.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts), opts: opts}
}

// ClearAll deletes every user, relationship and record.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Record{}, &models.Relationship{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Seed creates users with records, then a social mesh: every user is friends
// with the next one and has a pending request to the one after that.
func (s *Seeder) Seed(ctx context.Context) (*Summary, error) {
	middleware.Logger.Info("Starting database seeding",
		slog.Int("users", s.opts.NumUsers),
		slog.Int("records_per_user", s.opts.RecordsPerUser),
	)

	users := make([]*models.User, 0, s.opts.NumUsers)
	summary := &Summary{}
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser(ctx)
		if errors.Is(err, repository.ErrDuplicate) {
			// Generated email collided; try once more.
			user, err = s.factory.CreateUser(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)

		records, err := s.factory.CreateRecords(ctx, user, s.opts.RecordsPerUser)
		if err != nil {
			return nil, fmt.Errorf("failed to create records: %w", err)
		}
		summary.Records += len(records)
	}
	summary.Users = len(users)

	n := len(users)
	for i, user := range users {
		if n > 1 && (n > 2 || i == 0) {
			if _, err := s.factory.Connect(ctx, user, users[(i+1)%n], true); err != nil && !errors.Is(err, repository.ErrDuplicate) {
				return nil, fmt.Errorf("failed to connect friends: %w", err)
			} else if err == nil {
				summary.Friends++
			}
		}
		if n > 3 {
			if _, err := s.factory.Connect(ctx, user, users[(i+2)%n], false); err != nil && !errors.Is(err, repository.ErrDuplicate) {
				return nil, fmt.Errorf("failed to create friend request: %w", err)
			} else if err == nil {
				summary.Requests++
			}
		}
	}

	middleware.Logger.Info("Seeding complete",
		slog.Int("users", summary.Users),
		slog.Int("records", summary.Records),
		slog.Int("friends", summary.Friends),
		slog.Int("requests", summary.Requests),
	)
	return summary, nil
}
