package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pesaflow/pesaflow-backend/internal/auth"
	"github.com/pesaflow/pesaflow-backend/internal/models"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
)

// UserService covers registration and login. Registration is one atomic
// unit: user, account(s) and phone line all exist afterwards or none do.
type UserService struct {
	ledger   repo.Ledger
	users    repo.Users
	accounts repo.Accounts
	agents   repo.Agents
	tokens   *auth.TokenManager
	audit    repo.AuditLogs
}

func NewUserService(ledger repo.Ledger, users repo.Users, accounts repo.Accounts, agents repo.Agents, tokens *auth.TokenManager, audit repo.AuditLogs) *UserService {
	return &UserService{ledger: ledger, users: users, accounts: accounts, agents: agents, tokens: tokens, audit: audit}
}

type RegisterCustomerInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PIN         string `json:"pin"`
	PhoneNumber string `json:"phone_number"`
	IDNumber    string `json:"id_number"`
}

// RegisterCustomer creates the user, their wallet and their phone line.
// A national ID may carry at most models.MaxActivePhoneLines active
// lines; registration is refused outright at the cap.
func (s *UserService) RegisterCustomer(ctx context.Context, in RegisterCustomerInput) (models.User, models.Account, error) {
	u := models.User{
		Username:    in.Username,
		Email:       in.Email,
		Role:        models.RoleCustomer,
		PhoneNumber: in.PhoneNumber,
		IDNumber:    in.IDNumber,
	}
	if err := u.Validate(); err != nil {
		return models.User{}, models.Account{}, err
	}
	if !models.ValidNationalID(in.IDNumber) {
		return models.User{}, models.Account{}, errors.New("national ID must be 7 or 8 digits")
	}
	if len(in.PIN) != 4 {
		return models.User{}, models.Account{}, errors.New("PIN must be 4 digits")
	}

	passHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, models.Account{}, err
	}
	pinHash, err := auth.HashPIN(in.PIN)
	if err != nil {
		return models.User{}, models.Account{}, err
	}
	u.PasswordHash = passHash

	var wallet models.Account
	err = s.ledger.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		if _, err := tx.UserByPhone(ctx, in.PhoneNumber); err == nil {
			return ErrPhoneAlreadyRegistered
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		active, err := tx.CountActivePhoneLines(ctx, in.IDNumber)
		if err != nil {
			return err
		}
		if active >= models.MaxActivePhoneLines {
			return ErrPhoneLineCapExceeded
		}

		u, err = tx.CreateUser(ctx, u)
		if err != nil {
			return err
		}
		wallet, err = tx.CreateAccount(ctx, models.Account{
			OwnerID:       u.ID,
			Kind:          models.AccountWallet,
			AccountNumber: models.RandomAccountNumber(),
			PINHash:       pinHash,
			IsActive:      true,
		})
		if err != nil {
			return err
		}
		_, err = tx.CreatePhoneLine(ctx, models.PhoneLine{
			IDNumber:    in.IDNumber,
			PhoneNumber: in.PhoneNumber,
			IsActive:    true,
		})
		return err
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return models.User{}, models.Account{}, ErrPhoneAlreadyRegistered
	}
	if err != nil {
		return models.User{}, models.Account{}, err
	}

	id := u.ID
	_ = s.audit.Create(ctx, models.AuditLog{
		EntityType: "user",
		EntityID:   &id,
		Action:     "registered",
		Details:    map[string]any{"role": u.Role},
	})
	return u, wallet, nil
}

// OpenSavings creates the user's savings account. One per customer.
func (s *UserService) OpenSavings(ctx context.Context, userID string) (models.Account, error) {
	var savings models.Account
	err := s.ledger.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		var err error
		savings, err = tx.CreateAccount(ctx, models.Account{
			OwnerID:       userID,
			Kind:          models.AccountSavings,
			AccountNumber: models.RandomAccountNumber(),
			IsActive:      true,
		})
		return err
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return models.Account{}, fmt.Errorf("savings account already exists")
	}
	return savings, err
}

type RegisterAgentInput struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	PhoneNumber    string `json:"phone_number"`
	IDNumber       string `json:"id_number"`
	BusinessName   string `json:"business_name"`
	BusinessNumber string `json:"business_number"`
	Location       string `json:"location"`
}

// RegisterAgent creates the agent user, their float account and the
// agent profile in one atomic unit. The float starts at zero; an admin
// funds it through a float adjustment.
func (s *UserService) RegisterAgent(ctx context.Context, in RegisterAgentInput) (models.User, models.Agent, error) {
	u := models.User{
		Username:    in.Username,
		Email:       in.Email,
		Role:        models.RoleAgent,
		PhoneNumber: in.PhoneNumber,
		IDNumber:    in.IDNumber,
	}
	if err := u.Validate(); err != nil {
		return models.User{}, models.Agent{}, err
	}
	if in.BusinessName == "" || in.BusinessNumber == "" {
		return models.User{}, models.Agent{}, errors.New("business name and number required")
	}

	passHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, models.Agent{}, err
	}
	u.PasswordHash = passHash

	var agent models.Agent
	err = s.ledger.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		var err error
		u, err = tx.CreateUser(ctx, u)
		if err != nil {
			return err
		}
		if _, err = tx.CreateAccount(ctx, models.Account{
			OwnerID:       u.ID,
			Kind:          models.AccountFloat,
			AccountNumber: models.RandomAccountNumber(),
			IsActive:      true,
		}); err != nil {
			return err
		}
		agent, err = tx.CreateAgent(ctx, models.Agent{
			UserID:         u.ID,
			BusinessName:   in.BusinessName,
			BusinessNumber: in.BusinessNumber,
			Location:       in.Location,
			IsActive:       true,
		})
		return err
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return models.User{}, models.Agent{}, ErrPhoneAlreadyRegistered
	}
	if err != nil {
		return models.User{}, models.Agent{}, err
	}
	return u, agent, nil
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Login authenticates by email and password and issues a token pair.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, TokenPair{}, errors.New("invalid credentials")
	}
	if err != nil {
		return models.User{}, TokenPair{}, err
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return models.User{}, TokenPair{}, errors.New("invalid credentials")
	}
	access, refresh, exp, err := s.tokens.GeneratePair(u.ID, u.Role)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}
	return u, TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, isRefresh, err := s.tokens.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return TokenPair{}, errors.New("invalid refresh token")
	}
	access, refresh, exp, err := s.tokens.GeneratePair(claims.UserID, claims.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) GetAccount(ctx context.Context, ownerID string, kind models.AccountKind) (models.Account, error) {
	return s.accounts.GetByOwner(ctx, ownerID, kind)
}

func (s *UserService) GetAgentByUser(ctx context.Context, userID string) (models.Agent, error) {
	return s.agents.GetByUserID(ctx, userID)
}
