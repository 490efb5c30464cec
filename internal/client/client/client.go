package client

import (
	"context"

	"github.com/dmitrijs2005/learnportal/internal/client/models"
)

// Session is what the client needs from the session owner: the current
// token, and a hook called synchronously on every 401 with the token the
// rejected request carried ("" when it carried none).
type Session interface {
	Token() string
	Unauthorized(ctx context.Context, token string)
}

// Client is the portal backend API.
type Client interface {
	// AttachSession wires the token source and 401 hook.
	AttachSession(s Session)
	Close() error
	Ping(ctx context.Context) error

	LoginWithPassword(ctx context.Context, username string, password []byte) (string, error)
	LoginWithWallet(ctx context.Context, address, signature string) (string, error)
	Register(ctx context.Context, username, email string, password []byte) (models.RegisteredUser, error)
	GetCurrentUser(ctx context.Context) (*models.UserProfile, error)

	GetLearningTopics(ctx context.Context) ([]models.Topic, error)
	GetTools(ctx context.Context) ([]models.Tool, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (string, error)
}
