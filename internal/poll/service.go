package poll

import (
	"context"
	"errors"

	"github.com/pollwinner/backend/internal/models"
)

var (
	// ErrNotFound is returned for unknown poll ids.
	ErrNotFound = errors.New("poll not found")
	// ErrPollClosed is returned when editing a poll after settlement.
	ErrPollClosed = errors.New("poll is already closed")
)

// OptionInput is an option as submitted by the admin; ids are assigned here.
type OptionInput struct {
	Text        string  `json:"text"`
	ImageBase64 *string `json:"image_base64,omitempty"`
}

type Service interface {
	Create(ctx context.Context, title, description string, options []OptionInput, pricePerVote int64) (*models.Poll, error)
	Update(ctx context.Context, pollID, title, description string, options []OptionInput, pricePerVote int64) error
	Get(ctx context.Context, pollID string) (*models.Poll, error)
	ListActive(ctx context.Context) ([]*models.Poll, error)
	ListAll(ctx context.Context) ([]*models.Poll, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) Create(ctx context.Context, title, description string, options []OptionInput, pricePerVote int64) (*models.Poll, error) {
	p := &models.Poll{
		PollID:       models.NewID("poll"),
		Title:        title,
		Description:  description,
		Options:      buildOptions(options),
		PricePerVote: pricePerVote,
		Status:       models.PollStatusActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the option set and regenerates option ids, so edits are
// only allowed before any vote activity the admin cares about. Closed
// polls are immutable.
func (s *service) Update(ctx context.Context, pollID, title, description string, options []OptionInput, pricePerVote int64) error {
	existing, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	if existing.Status != models.PollStatusActive {
		return ErrPollClosed
	}
	p := &models.Poll{
		PollID:       pollID,
		Title:        title,
		Description:  description,
		Options:      buildOptions(options),
		PricePerVote: pricePerVote,
	}
	return s.repo.Update(ctx, p)
}

func (s *service) Get(ctx context.Context, pollID string) (*models.Poll, error) {
	p, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *service) ListActive(ctx context.Context) ([]*models.Poll, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) ListAll(ctx context.Context) ([]*models.Poll, error) {
	return s.repo.ListAll(ctx)
}

func buildOptions(inputs []OptionInput) []models.PollOption {
	opts := make([]models.PollOption, len(inputs))
	for i, in := range inputs {
		opts[i] = models.PollOption{
			OptionID:    models.NewOptionID(),
			Text:        in.Text,
			ImageBase64: in.ImageBase64,
		}
	}
	return opts
}
