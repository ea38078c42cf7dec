package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pesaflow/pesaflow-backend/internal/auth"
	"github.com/pesaflow/pesaflow-backend/internal/models"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
)

func newUserFixture() (*fakeStore, *UserService) {
	s := newFakeStore()
	tm := auth.NewTokenManager("access", "refresh", "test", time.Minute, time.Hour)
	svc := NewUserService(&fakeLedger{s}, nil, nil, nil, tm, &fakeAuditLogs{})
	return s, svc
}

func validRegistration() RegisterCustomerInput {
	return RegisterCustomerInput{
		Username:    "wanjiku",
		Email:       "wanjiku@example.com",
		Password:    "s3cret-pass",
		PIN:         "1234",
		PhoneNumber: "+254712345678",
		IDNumber:    "12345678",
	}
}

func TestRegisterCustomer(t *testing.T) {
	s, svc := newUserFixture()

	u, wallet, err := svc.RegisterCustomer(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != models.RoleCustomer {
		t.Errorf("role = %s, want customer", u.Role)
	}
	if wallet.Kind != models.AccountWallet || !wallet.IsActive || wallet.Balance != 0 {
		t.Errorf("wallet = %+v, want active zero-balance wallet", wallet)
	}
	if len(wallet.AccountNumber) != 10 {
		t.Errorf("account number %q, want 10 digits", wallet.AccountNumber)
	}
	if u.PasswordHash == "s3cret-pass" || u.PasswordHash == "" {
		t.Errorf("password stored in the clear")
	}
	if err := auth.VerifyPIN("1234", s.accounts[wallet.ID].PINHash); err != nil {
		t.Errorf("PIN does not verify: %v", err)
	}
	if len(s.phoneLines) != 1 || !s.phoneLines[0].IsActive {
		t.Errorf("phone line not registered: %+v", s.phoneLines)
	}
}

func TestRegisterCustomerDuplicatePhone(t *testing.T) {
	_, svc := newUserFixture()

	if _, _, err := svc.RegisterCustomer(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	in := validRegistration()
	in.Username = "other"
	in.Email = "other@example.com"
	_, _, err := svc.RegisterCustomer(context.Background(), in)
	if !errors.Is(err, ErrPhoneAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrPhoneAlreadyRegistered", err)
	}
}

func TestRegisterCustomerPhoneLineCap(t *testing.T) {
	s, svc := newUserFixture()

	for i := 0; i < models.MaxActivePhoneLines; i++ {
		in := validRegistration()
		in.Username = fmt.Sprintf("user%d", i)
		in.Email = fmt.Sprintf("user%d@example.com", i)
		in.PhoneNumber = fmt.Sprintf("+25471234%04d", i)
		if _, _, err := svc.RegisterCustomer(context.Background(), in); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	in := validRegistration()
	in.Username = "onemore"
	in.Email = "onemore@example.com"
	in.PhoneNumber = "+254712349999"
	_, _, err := svc.RegisterCustomer(context.Background(), in)
	if !errors.Is(err, ErrPhoneLineCapExceeded) {
		t.Fatalf("err = %v, want ErrPhoneLineCapExceeded", err)
	}
	// The blocked registration must leave nothing behind.
	if len(s.phoneLines) != models.MaxActivePhoneLines {
		t.Errorf("phone lines = %d, want %d", len(s.phoneLines), models.MaxActivePhoneLines)
	}
	if _, err := (&fakeTx{s}).UserByPhone(context.Background(), "+254712349999"); err == nil {
		t.Errorf("user created despite blocked registration")
	}
}

func TestRegisterCustomerValidation(t *testing.T) {
	_, svc := newUserFixture()

	tests := []struct {
		name   string
		mutate func(*RegisterCustomerInput)
	}{
		{"short username", func(in *RegisterCustomerInput) { in.Username = "ab" }},
		{"bad email", func(in *RegisterCustomerInput) { in.Email = "nope" }},
		{"bad phone", func(in *RegisterCustomerInput) { in.PhoneNumber = "0712345678" }},
		{"bad national id", func(in *RegisterCustomerInput) { in.IDNumber = "123" }},
		{"bad pin", func(in *RegisterCustomerInput) { in.PIN = "12" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validRegistration()
			tc.mutate(&in)
			if _, _, err := svc.RegisterCustomer(context.Background(), in); err == nil {
				t.Fatal("want validation error, got nil")
			}
		})
	}
}

func TestOpenSavings(t *testing.T) {
	s, svc := newUserFixture()
	u := s.addUser("+254712345678", models.RoleCustomer)
	s.addAccount(u.ID, models.AccountWallet, 0)

	acc, err := svc.OpenSavings(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("open savings: %v", err)
	}
	if acc.Kind != models.AccountSavings || !acc.IsActive {
		t.Errorf("account = %+v, want active savings", acc)
	}
	if _, err := svc.OpenSavings(context.Background(), u.ID); err == nil {
		t.Fatal("second savings account allowed")
	}
}

func TestRegisterAgent(t *testing.T) {
	s, svc := newUserFixture()

	u, agent, err := svc.RegisterAgent(context.Background(), RegisterAgentInput{
		Username:       "dukaone",
		Email:          "duka@example.com",
		Password:       "s3cret-pass",
		PhoneNumber:    "+254722000111",
		IDNumber:       "7654321",
		BusinessName:   "Duka One",
		BusinessNumber: "110022",
		Location:       "Kibera",
	})
	if err != nil {
		t.Fatalf("register agent: %v", err)
	}
	if u.Role != models.RoleAgent {
		t.Errorf("role = %s, want agent", u.Role)
	}
	if !agent.IsActive || agent.UserID != u.ID {
		t.Errorf("agent = %+v", agent)
	}
	floatAcc, err := (&fakeTx{s}).AccountByOwner(context.Background(), u.ID, models.AccountFloat)
	if err != nil {
		t.Fatalf("float account missing: %v", err)
	}
	if floatAcc.Balance != 0 {
		t.Errorf("float starts at %d, want 0", floatAcc.Balance)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	s, svc := newUserFixture()
	hash, _ := auth.HashPassword("s3cret-pass")
	u := models.User{ID: "usr-login", Username: "wanjiku", Email: "wanjiku@example.com", PasswordHash: hash, Role: models.RoleCustomer}
	s.users[u.ID] = u
	svc.users = &fakeUsersRepo{s}

	got, pair, err := svc.Login(context.Background(), "wanjiku@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Errorf("login result incomplete")
	}

	if _, _, err := svc.Login(context.Background(), "wanjiku@example.com", "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.AccessToken == "" {
		t.Error("refresh returned empty access token")
	}
	// Access tokens must not work as refresh tokens.
	if _, err := svc.Refresh(context.Background(), pair.AccessToken); err == nil {
		t.Fatal("access token accepted for refresh")
	}
}

type fakeUsersRepo struct{ s *fakeStore }

func (r *fakeUsersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (r *fakeUsersRepo) GetByPhone(ctx context.Context, phone string) (models.User, error) {
	return (&fakeTx{r.s}).UserByPhone(ctx, phone)
}

func (r *fakeUsersRepo) List(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	return out, nil
}
