package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/learnportal/internal/client/client"
	"github.com/dmitrijs2005/learnportal/internal/client/models"
)

// ContentService serves the read-mostly portal resources to views.
type ContentService interface {
	LearningTopics(ctx context.Context) ([]models.Topic, error)
	Tools(ctx context.Context) ([]models.Tool, error)
	Profile(ctx context.Context) (*models.UserProfile, error)
	UpdateEmail(ctx context.Context, email string) (string, error)
}

type contentService struct {
	client client.Client
	auth   AuthService
}

func NewContentService(c client.Client, auth AuthService) ContentService {
	return &contentService{client: c, auth: auth}
}

func (s *contentService) LearningTopics(ctx context.Context) ([]models.Topic, error) {
	return s.client.GetLearningTopics(ctx)
}

func (s *contentService) Tools(ctx context.Context) ([]models.Tool, error) {
	return s.client.GetTools(ctx)
}

func (s *contentService) Profile(ctx context.Context) (*models.UserProfile, error) {
	return s.client.GetCurrentUser(ctx)
}

// UpdateEmail changes the email of the current user and refreshes the
// session's copy of the profile. It returns the server's message.
func (s *contentService) UpdateEmail(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return "", ErrInvalidEmail
	}

	msg, err := s.client.UpdateProfile(ctx, models.ProfileUpdate{Email: &email})
	if err != nil {
		return "", err
	}
	if err := s.auth.Refresh(ctx); err != nil {
		return msg, err
	}
	return msg, nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
