package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rajhholding/internal/database"
	"rajhholding/internal/database/dbtest"
	"rajhholding/internal/domain"
	"rajhholding/internal/identity"
	"rajhholding/internal/logging"
)

const adminToken = "admin-session-token"

// fakeProvider accepts adminToken and the password "correct-horse"
type fakeProvider struct {
	mu         sync.Mutex
	getCalls   int
	getErr     error
	panics     bool
	signInErr  error
	signOutErr error
	signedOut  []string
}

func (f *fakeProvider) GetUser(ctx context.Context, token string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.panics {
		panic("provider exploded")
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	if token != adminToken {
		return nil, &identity.Error{Status: 401, Code: "bad_jwt", Message: "invalid JWT"}
	}
	return &identity.User{ID: "admin-1", Email: "admin@rajhholding.ch"}, nil
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if password != "correct-horse" {
		return nil, &identity.Error{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	return &identity.Session{
		AccessToken: adminToken,
		ExpiresIn:   3600,
		User:        identity.User{ID: "admin-1", Email: email},
	}, nil
}

func (f *fakeProvider) SignOut(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, token)
	return f.signOutErr
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

// recordingNotifier collects notified submissions
type recordingNotifier struct {
	mu  sync.Mutex
	got []domain.ContactSubmission
	err error
}

func (n *recordingNotifier) NotifyContact(ctx context.Context, c *domain.ContactSubmission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, *c)
	return n.err
}

func (n *recordingNotifier) received() []domain.ContactSubmission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ContactSubmission(nil), n.got...)
}

type harness struct {
	db       *gorm.DB
	gateway  *database.Gateway
	provider *fakeProvider
	verifier *SessionVerifier
	notifier *recordingNotifier
	teams    *TeamService
	contacts *ContactService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{db: dbtest.Open(t), provider: &fakeProvider{}, notifier: &recordingNotifier{}}

	var err error
	h.gateway, err = database.NewGateway(h.db)
	require.NoError(t, err)
	h.verifier, err = NewSessionVerifier(h.provider, logging.Discard())
	require.NoError(t, err)
	h.teams, err = NewTeamService(h.gateway, h.verifier, logging.Discard())
	require.NoError(t, err)
	h.contacts, err = NewContactService(h.gateway, h.verifier, h.notifier, logging.Discard())
	require.NoError(t, err)
	return h
}

// breakStore closes the connection so every store call fails
func (h *harness) breakStore(t *testing.T) {
	t.Helper()
	require.NoError(t, database.Close(h.db))
}

func (h *harness) countContacts(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&domain.ContactSubmission{}).Count(&n).Error)
	return n
}

var errProviderDown = errors.New("dial tcp: connection refused")
