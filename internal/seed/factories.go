// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them through the repositories
// in service scope.
type Factory struct {
	opts          Options
	users         repository.UserRepository
	relationships repository.RelationshipRepository
	records       repository.RecordRepository
	faker         *gofakeit.Faker
	passwordHash  string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		opts:          opts,
		users:         repository.NewUserRepository(db),
		relationships: repository.NewRelationshipRepository(db),
		records:       repository.NewRecordRepository(db),
		faker:         gofakeit.New(seed),
	}
}

// hash computes the shared password hash once.
func (f *Factory) hash() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		f.passwordHash = DefaultPassword
		return f.passwordHash, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	f.passwordHash = string(hashed)
	return f.passwordHash, nil
}

// CreateUser constructs and persists a sample models.User.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := f.hash()
	if err != nil {
		return nil, err
	}

	name := f.faker.Name()
	phone := f.faker.Phone()
	user := &models.User{
		Email:        fmt.Sprintf("%s.%d@example.com", f.faker.Username(), f.faker.Number(1000, 9999)),
		PasswordHash: hashed,
		DisplayName:  &name,
		Phone:        &phone,
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildRecord constructs a food record owned by user without persisting it.
func (f *Factory) BuildRecord(user *models.User, overrides ...func(*models.Record)) models.Record {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	takenAt := time.Now().Add(-time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute).UTC()

	meals := []func() string{f.faker.Breakfast, f.faker.Lunch, f.faker.Dinner, f.faker.Snack}
	title := meals[f.faker.Number(0, len(meals)-1)]()

	protein := f.faker.Float64Range(0, 60)
	fat := f.faker.Float64Range(0, 50)
	carbs := f.faker.Float64Range(0, 120)
	calories := protein*4 + fat*9 + carbs*4

	rec := models.Record{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		LocalID:      ptr(f.faker.UUID()),
		Title:        &title,
		RemoteURI:    ptr(fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())),
		Calories:     &calories,
		Protein:      &protein,
		Fat:          &fat,
		Carbohydrate: &carbs,
		Latitude:     ptr(f.faker.Latitude()),
		Longitude:    ptr(f.faker.Longitude()),
		City:         ptr(f.faker.City()),
		District:     ptr(f.faker.StreetName()),
		TakenAt:      ptr(takenAt.Format(time.RFC3339)),
		SyncState:    ptr("synced"),
	}
	for _, override := range overrides {
		override(&rec)
	}
	return rec
}

// CreateRecords builds and persists n records for user in one upsert.
func (f *Factory) CreateRecords(ctx context.Context, user *models.User, n int) ([]models.Record, error) {
	if n <= 0 {
		return nil, nil
	}
	batch := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, f.BuildRecord(user))
	}
	opts := repository.UpsertOptions{Now: time.Now().UnixMilli()}
	if _, _, err := f.records.Upsert(ctx, repository.ServiceScope(), batch, opts); err != nil {
		return nil, err
	}
	return batch, nil
}

// Connect creates a relationship requested by from. With accept set the
// request is accepted on behalf of to.
func (f *Factory) Connect(ctx context.Context, from, to *models.User, accept bool) (*models.Relationship, error) {
	rel := &models.Relationship{
		UserID:      from.ID,
		FriendID:    to.ID,
		RequestedBy: from.ID,
		Status:      models.RelationshipStatusPending,
	}
	if err := f.relationships.Insert(ctx, repository.ServiceScope(), rel); err != nil {
		return nil, err
	}
	if !accept {
		return rel, nil
	}

	ok, err := f.relationships.UpdateStatus(ctx, repository.ServiceScope(), rel.ID,
		models.RelationshipStatusPending, models.RelationshipStatusAccepted)
	if err != nil {
		return nil, err
	}
	if ok {
		rel.Status = models.RelationshipStatusAccepted
	}
	return rel, nil
}

func ptr[T any](v T) *T {
	return &v
}
