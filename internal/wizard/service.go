package wizard

import (
	"context"

	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/models"

	"github.com/google/uuid"
)

// Service runs wizard operations against stored sessions owned by a user.
type Service struct {
	machine   *Machine
	store     *SessionStore
	submitter Submitter
	logger    logger.Logger
}

func NewService(machine *Machine, store *SessionStore, submitter Submitter, log logger.Logger) *Service {
	return &Service{
		machine:   machine,
		store:     store,
		submitter: submitter,
		logger:    logger.Component(log, "wizard"),
	}
}

// Start opens a new session at URLInput.
func (s *Service) Start(ctx context.Context, owner models.User) (*models.WizardState, error) {
	st := s.machine.New(uuid.NewString(), owner.ID)
	if err := s.store.Save(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Debug("wizard session started", map[string]interface{}{"sessionId": st.SessionID, "userId": owner.ID})
	return st, nil
}

// Get returns the session if the caller owns it.
func (s *Service) Get(ctx context.Context, owner models.User, sessionID string) (*models.WizardState, error) {
	return s.load(ctx, owner, sessionID)
}

func (s *Service) SubmitURL(ctx context.Context, owner models.User, sessionID, url string) (*models.WizardState, error) {
	return s.mutate(ctx, owner, sessionID, func(st *models.WizardState) error {
		return s.machine.SubmitURL(st, url)
	})
}

func (s *Service) Next(ctx context.Context, owner models.User, sessionID string) (*models.WizardState, error) {
	return s.mutate(ctx, owner, sessionID, s.machine.Next)
}

func (s *Service) Back(ctx context.Context, owner models.User, sessionID string) (*models.WizardState, error) {
	return s.mutate(ctx, owner, sessionID, s.machine.Back)
}

func (s *Service) ToggleKeyword(ctx context.Context, owner models.User, sessionID, keywordID string) (*models.WizardState, error) {
	return s.mutate(ctx, owner, sessionID, func(st *models.WizardState) error {
		return s.machine.ToggleKeyword(st, keywordID)
	})
}

func (s *Service) SelectPackage(ctx context.Context, owner models.User, sessionID, tier string) (*models.WizardState, error) {
	return s.mutate(ctx, owner, sessionID, func(st *models.WizardState) error {
		return s.machine.SelectPackage(st, tier)
	})
}

func (s *Service) SetContact(ctx context.Context, owner models.User, sessionID, email, phone, message string) (*models.WizardState, error) {
	return s.mutate(ctx, owner, sessionID, func(st *models.WizardState) error {
		return s.machine.SetContact(st, email, phone, message)
	})
}

// Submit hands the reviewed session to the submitter under the session's
// submit lock. On success the stored session is removed and the final state
// carrying the confirmation is returned. On failure the session stays at
// review with LastError set, and both the state and the error are returned.
func (s *Service) Submit(ctx context.Context, owner models.User, sessionID, token string) (*models.WizardState, error) {
	release, err := s.store.AcquireSubmitLock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.logger.Warn("failed to release submit lock", map[string]interface{}{"sessionId": sessionID, "error": relErr})
		}
	}()

	st, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}

	// the lock is held, so a busy flag here is left over from an interrupted submit
	st.Busy = false
	if err := s.machine.BeginSubmit(st); err != nil {
		return st, err
	}
	if err := s.store.Save(ctx, st); err != nil {
		return nil, err
	}

	res, subErr := s.submitter.Submit(ctx, token, *st)
	s.machine.FinishSubmit(st, res, subErr)

	if subErr != nil {
		s.logger.Warn("wizard submission failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     subErr.Error(),
		})
		if err := s.store.Save(context.WithoutCancel(ctx), st); err != nil {
			s.logger.Error("failed to persist failed submission state", map[string]interface{}{"sessionId": sessionID, "error": err})
		}
		return st, subErr
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("failed to delete completed wizard session", map[string]interface{}{"sessionId": sessionID, "error": err})
	}
	s.logger.Info("wizard submitted", map[string]interface{}{
		"sessionId": sessionID,
		"projectId": res.ProjectID,
		"offerId":   res.OfferID,
	})
	return st, nil
}

func (s *Service) load(ctx context.Context, owner models.User, sessionID string) (*models.WizardState, error) {
	st, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.OwnerID != owner.ID {
		// not found rather than forbidden, so other sessions stay hidden
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	return st, nil
}

// mutate applies fn and saves the result even when fn rejects the input,
// since some operations keep what was entered.
func (s *Service) mutate(ctx context.Context, owner models.User, sessionID string, fn func(*models.WizardState) error) (*models.WizardState, error) {
	st, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Busy {
		return nil, errors.NewSubmissionInFlightError(sessionID)
	}

	opErr := fn(st)
	if err := s.store.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, opErr
}
