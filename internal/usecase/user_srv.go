package usecase

import (
	"context"

	"clinic-auth/internal/data/repository"
	"clinic-auth/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.MeResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.MeResponse, error) {
	user, err := us.userRepo.FindByID(ctx, userID)
	if err != nil {
		us.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, storageError(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return &response.MeResponse{
		User:        response.UserToResponse(user),
		Destination: Destination(user.Role),
	}, nil
}
