package testutil

import (
	"context"
	"time"

	"medterms/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) EnsureUserExists(userID int64) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepository) GetLanguage(userID int64) (domain.Lang, error) {
	args := m.Called(userID)
	return args.Get(0).(domain.Lang), args.Error(1)
}

func (m *MockUserRepository) SetLanguage(userID int64, lang domain.Lang) error {
	args := m.Called(userID, lang)
	return args.Error(0)
}

// MockTermRepository is a mock for TermRepository and CategoryRepository
type MockTermRepository struct {
	mock.Mock
}

func (m *MockTermRepository) ListTerms(ctx context.Context) ([]domain.Term, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Term), args.Error(1)
}

func (m *MockTermRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

// MockCatalogWriter is a mock for CatalogWriter
type MockCatalogWriter struct {
	mock.Mock
}

func (m *MockCatalogWriter) UpsertCategory(ctx context.Context, category domain.Category) (int64, error) {
	args := m.Called(ctx, category)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogWriter) UpsertTerm(ctx context.Context, term domain.Term) (int64, error) {
	args := m.Called(ctx, term)
	return args.Get(0).(int64), args.Error(1)
}

// MockProgressRepository is a mock for ProgressRepository
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) List(ctx context.Context, userID int64) ([]domain.WordProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WordProgress), args.Error(1)
}

func (m *MockProgressRepository) Upsert(ctx context.Context, userID, wordID int64, isCorrect bool, at time.Time) error {
	args := m.Called(ctx, userID, wordID, isCorrect, at)
	return args.Error(0)
}

func (m *MockProgressRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockGenerator is a mock for sentence.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}
