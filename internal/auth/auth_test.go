package auth

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheapHashes keeps argon2 fast for the duration of a test.
func cheapHashes(t *testing.T) {
	t.Helper()
	prev := DefaultHashParams
	DefaultHashParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	t.Cleanup(func() { DefaultHashParams = prev })
}

func TestHashAndVerifyPassword(t *testing.T) {
	cheapHashes(t)

	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := VerifyPassword("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ")
}

func TestHashPasswordClampsParallelism(t *testing.T) {
	hash, err := HashPasswordWith("pw", HashParams{Memory: 1024, Iterations: 1, SaltLength: 8, KeyLength: 16})
	require.NoError(t, err)
	assert.Contains(t, hash, ",p=1$")
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("pw", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = VerifyPassword("pw", "$argon2id$v=1$m=1,t=1,p=1$AAAA$AAAA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)

	_, err = VerifyPassword("pw", "$argon2id$v=19$m=1,t=1,p=1$!!$AAAA")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens, err := NewTokens(time.Hour)
	require.NoError(t, err)

	id := uuid.New()
	token, err := tokens.Create(id)
	require.NoError(t, err)

	got, err := tokens.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokensExpire(t *testing.T) {
	clock := quartz.NewMock(t)
	tokens, err := NewTokens(time.Hour)
	require.NoError(t, err)
	tokens.WithClock(clock)

	token, err := tokens.Create(uuid.New())
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	_, err = tokens.Authenticate(token)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = tokens.Authenticate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensWithoutExpiry(t *testing.T) {
	clock := quartz.NewMock(t)
	tokens, err := NewTokens(0)
	require.NoError(t, err)
	tokens.WithClock(clock)

	token, err := tokens.Create(uuid.New())
	require.NoError(t, err)
	clock.Advance(24 * 365 * time.Hour)
	_, err = tokens.Authenticate(token)
	assert.NoError(t, err)
}

func TestTokensRejectForeignSignature(t *testing.T) {
	issuer, err := NewTokens(time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokens(time.Hour)
	require.NoError(t, err)

	token, err := issuer.Create(uuid.New())
	require.NoError(t, err)

	_, err = verifier.Authenticate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.Authenticate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpiry(t *testing.T) {
	for raw, want := range map[string]time.Duration{
		"":      0,
		"0":     0,
		"never": 0,
		"90m":   90 * time.Minute,
	} {
		got, err := ParseExpiry(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseExpiry("soon")
	assert.Error(t, err)
	_, err = ParseExpiry("-1h")
	assert.Error(t, err)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	cheapHashes(t)
	tokens, err := NewTokens(time.Hour)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	return NewService(store.NewUserStore(), tokens, logger)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	user, err := svc.Register(ctx, "alice", "secret", "Alice")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotEqual(t, "secret", user.Password)

	token, loggedIn, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	sub, err := svc.Tokens().Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sub)
}

func TestRegisterDuplicateLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Register(ctx, "alice", "secret", "Alice")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", "other", "Alice Two")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterRequiresFields(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(context.Background(), " ", "secret", "Alice")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Register(ctx, "alice", "secret", "Alice")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "bob", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
