package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tilldesk/tilldesk/internal/shared"
)

type memoryRepo struct {
	cashiers map[string]Cashier
}

func (r *memoryRepo) GetByCode(ctx context.Context, code string) (Cashier, error) {
	for _, c := range r.cashiers {
		if c.Code == code && c.IsActive {
			return c, nil
		}
	}
	return Cashier{}, ErrNotFound
}

func (r *memoryRepo) Get(ctx context.Context, id string) (Cashier, error) {
	c, ok := r.cashiers[id]
	if !ok {
		return Cashier{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) Create(ctx context.Context, c Cashier) error {
	r.cashiers[c.ID] = c
	return nil
}

func testSession(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "tilldesk_session", "test-secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	return sess
}

func newAuthFixture(t *testing.T) (*Service, *shared.Session) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("4321"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &memoryRepo{cashiers: map[string]Cashier{
		"cashier-1": {ID: "cashier-1", Name: "Ngozi", Code: "NG1", PINHash: string(hash), IsActive: true},
	}}
	return NewService(repo), testSession(t)
}

func TestLoginBindsSession(t *testing.T) {
	svc, sess := newAuthFixture(t)

	cashier, err := svc.Login(context.Background(), sess, "NG1", "4321")
	require.NoError(t, err)
	require.Equal(t, "cashier-1", cashier.ID)
	require.Equal(t, "cashier-1", sess.Cashier())
}

func TestLoginWrongPIN(t *testing.T) {
	svc, sess := newAuthFixture(t)

	_, err := svc.Login(context.Background(), sess, "NG1", "9999")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Empty(t, sess.Cashier())
}

func TestLoginMalformedPINRejectedBeforeLookup(t *testing.T) {
	svc, sess := newAuthFixture(t)

	for _, pin := range []string{"", "12", "abcd", "1234567", "12 4"} {
		_, err := svc.Login(context.Background(), sess, "NG1", pin)
		require.ErrorIs(t, err, ErrInvalidPIN, "pin %q", pin)
	}
}

func TestLoginUnknownCode(t *testing.T) {
	svc, sess := newAuthFixture(t)

	_, err := svc.Login(context.Background(), sess, "NOPE", "4321")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterHashesPIN(t *testing.T) {
	repo := &memoryRepo{cashiers: make(map[string]Cashier)}
	svc := NewService(repo)

	cashier, err := svc.Register(context.Background(), RegisterInput{Name: "Ade", Code: "AD1", PIN: "123456"})
	require.NoError(t, err)
	require.NotEqual(t, "123456", cashier.PINHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(cashier.PINHash), []byte("123456")))

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Bad", Code: "BD1", PIN: "12"})
	require.ErrorIs(t, err, ErrInvalidPIN)
}
