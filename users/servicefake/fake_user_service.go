package servicefake

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-identity-server/users"
)

var _ users.AuthenticationService = (*FakeUserService)(nil)
var _ users.ClaimsProvider = (*FakeUserService)(nil)

// User is a test/dev account held by the fake service.
type User struct {
	Subject      string
	Username     string
	PasswordHash string // bcrypt
	Active       bool
	Claims       []users.Claim
}

// FakeUserService is an in-memory implementation of the user collaborators,
// used in tests and as the dev-mode backend at composition time.
type FakeUserService struct {
	byUsername map[string]*User
	bySubject  map[string]*User
	lock       sync.RWMutex
	nowFunc    func() time.Time
}

func New(accounts ...*User) *FakeUserService {
	s := &FakeUserService{
		byUsername: make(map[string]*User),
		bySubject:  make(map[string]*User),
		nowFunc:    time.Now,
	}
	for _, u := range accounts {
		s.byUsername[u.Username] = u
		s.bySubject[u.Subject] = u
	}
	return s
}

// HashPassword is a convenience for seeding accounts.
func HashPassword(plain string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}

func (s *FakeUserService) AuthenticateLocal(_ context.Context, username, password string) (*users.Principal, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	u, ok := s.byUsername[username]
	if !ok || !u.Active {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return &users.Principal{
		Subject:              u.Subject,
		DisplayName:          u.Username,
		AuthenticationMethod: "password",
		AuthTime:             s.nowFunc(),
		Claims:               u.Claims,
	}, nil
}

func (s *FakeUserService) IsActive(_ context.Context, subject string) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	u, ok := s.bySubject[subject]
	return ok && u.Active, nil
}

func (s *FakeUserService) ClaimsFor(_ context.Context, principal *users.Principal, _ []string) ([]users.Claim, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if u, ok := s.bySubject[principal.Subject]; ok {
		return u.Claims, nil
	}
	return principal.Claims, nil
}

// Deactivate flips an account inactive. Intended for test setup.
func (s *FakeUserService) Deactivate(subject string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if u, ok := s.bySubject[subject]; ok {
		u.Active = false
	}
}
