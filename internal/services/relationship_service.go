package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anonto42/pawfolio/backend/internal/models"
	"github.com/anonto42/pawfolio/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is a relationship mutation requested by the subject
type Action string

const (
	ActionFollow   Action = "follow"
	ActionUnfollow Action = "unfollow"
)

// Caller-facing messages
const (
	MsgUnauthorized     = "Unauthorized"
	MsgMissingFields    = "Missing userId or action"
	MsgInvalidAction    = "Invalid action. Use 'follow' or 'unfollow'"
	MsgInvalidIDFormat  = "Invalid userId format"
	MsgUserNotFound     = "User not found"
	MsgSelfReference    = "Cannot follow/unfollow yourself"
	MsgAlreadyFollowing = "Already following this user"
	MsgNotFollowing     = "Not following this user"
	MsgInternal         = "Failed to process request"
)

// RelationshipService applies follow/unfollow edges to both user documents
// inside a single store transaction.
type RelationshipService struct {
	store  repositories.Transactor
	logger *slog.Logger
}

// NewRelationshipService creates a new RelationshipService
func NewRelationshipService(store repositories.Transactor, logger *slog.Logger) *RelationshipService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelationshipService{store: store, logger: logger}
}

// Mutate validates the request, then follows or unfollows targetID on behalf
// of the subject identified by subjectExternalID. Either both documents
// change or neither does.
func (s *RelationshipService) Mutate(ctx context.Context, subjectExternalID, targetID, action string) (*models.RelationshipCounts, error) {
	if subjectExternalID == "" {
		return nil, newError(KindUnauthenticated, MsgUnauthorized)
	}
	if targetID == "" || action == "" {
		return nil, newError(KindBadRequest, MsgMissingFields)
	}
	act := Action(action)
	if act != ActionFollow && act != ActionUnfollow {
		return nil, newError(KindBadRequest, MsgInvalidAction)
	}
	targetObjID, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return nil, newError(KindBadRequest, MsgInvalidIDFormat)
	}

	var counts models.RelationshipCounts
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.UserTx) error {
		subject, err := tx.GetUserByExternalID(ctx, subjectExternalID)
		if err != nil {
			return lookupError(err)
		}
		target, err := tx.GetUserByID(ctx, targetObjID)
		if err != nil {
			return lookupError(err)
		}

		if subject.ID == target.ID {
			return newError(KindInvalidOperation, MsgSelfReference)
		}

		switch act {
		case ActionFollow:
			if subject.IsFollowing(target.ID) {
				return newError(KindConflict, MsgAlreadyFollowing)
			}
			subject.Follow(target)
		case ActionUnfollow:
			if !subject.IsFollowing(target.ID) {
				return newError(KindConflict, MsgNotFollowing)
			}
			subject.Unfollow(target)
		}

		if err := tx.SaveRelationships(ctx, subject); err != nil {
			return err
		}
		if err := tx.SaveRelationships(ctx, target); err != nil {
			return err
		}

		counts = models.RelationshipCounts{
			FollowingCount: len(subject.Following),
			FollowersCount: len(target.Followers),
		}
		return nil
	})
	if err == nil {
		return &counts, nil
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return nil, svcErr
	}
	s.logger.ErrorContext(ctx, "relationship mutation failed",
		slog.String("subject", subjectExternalID),
		slog.String("target", targetID),
		slog.String("action", action),
		slog.Any("error", err),
	)
	return nil, &Error{Kind: KindInternal, Message: MsgInternal, Err: err}
}

func lookupError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return &Error{Kind: KindNotFound, Message: MsgUserNotFound, Err: err}
	}
	return err
}
