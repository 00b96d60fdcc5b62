package service

import (
	"medterms/internal/domain"
	"medterms/internal/repository"
)

// UserService handles user records and interface language
type UserService struct {
	userRepo    repository.UserRepository
	defaultLang domain.Lang
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository, defaultLang domain.Lang) *UserService {
	if defaultLang == "" {
		defaultLang = domain.LangEnglish
	}
	return &UserService{
		userRepo:    userRepo,
		defaultLang: defaultLang,
	}
}

// EnsureUserExists creates user record if doesn't exist
func (s *UserService) EnsureUserExists(userID int64) error {
	return s.userRepo.EnsureUserExists(userID)
}

// Language returns the user's prompt language, or the default when unset
func (s *UserService) Language(userID int64) (domain.Lang, error) {
	lang, err := s.userRepo.GetLanguage(userID)
	if err != nil {
		return s.defaultLang, err
	}
	if lang == "" {
		return s.defaultLang, nil
	}
	return lang, nil
}

// SetLanguage stores the user's prompt language
func (s *UserService) SetLanguage(userID int64, lang domain.Lang) error {
	return s.userRepo.SetLanguage(userID, lang)
}
