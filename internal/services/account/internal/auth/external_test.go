package auth

import (
	"sync"
	"testing"

	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/oauth"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleProfile() oauth.User {
	return oauth.User{
		ID:            "sub-1",
		Email:         "g@x.com",
		EmailVerified: true,
		Name:          "Gina",
		Picture:       "https://example.com/g.png",
	}
}

func TestExternal_CreatesPublicUser(t *testing.T) {
	st := newTestStore(t)

	u, err := NewExternal(st).Authenticate(t.Context(), "google", googleProfile())
	require.NoError(t, err)

	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "g@x.com", u.Email)
	assert.Equal(t, "Gina", u.Name)
	assert.Equal(t, "https://example.com/g.png", u.Photo)
	assert.True(t, u.IsPublic)
	assert.False(t, u.IsAdmin)
	assert.False(t, u.Password.IsSet())
	assert.Equal(t, "google", u.Provider)
	assert.Equal(t, "sub-1", u.ExternalID)
}

func TestExternal_SameIdentityTwice(t *testing.T) {
	st := newTestStore(t)
	e := NewExternal(st)

	first, err := e.Authenticate(t.Context(), "google", googleProfile())
	require.NoError(t, err)
	second, err := e.Authenticate(t.Context(), "google", googleProfile())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	all, err := st.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestExternal_UnverifiedEmailIsNotUsed(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Create(t.Context(), store.CreateUserRequest{Email: "g@x.com", Password: "p1"})
	require.NoError(t, err)

	profile := googleProfile()
	profile.EmailVerified = false

	u, err := NewExternal(st).Authenticate(t.Context(), "google", profile)
	require.NoError(t, err)

	assert.Equal(t, int64(2), u.ID)
	assert.Empty(t, u.Email)
}

func TestExternal_LinksUserWithoutCredentialByVerifiedEmail(t *testing.T) {
	st := newTestStore(t)
	id, err := st.Create(t.Context(), store.CreateUserRequest{Email: "g@x.com", Name: "Local Name"})
	require.NoError(t, err)

	u, err := NewExternal(st).Authenticate(t.Context(), "google", googleProfile())
	require.NoError(t, err)

	assert.Equal(t, id, u.ID)
	assert.Equal(t, "Local Name", u.Name)
	assert.Equal(t, "https://example.com/g.png", u.Photo)
	assert.False(t, u.IsPublic)

	linked, err := st.FindByExternalID(t.Context(), "google", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, id, linked.ID)
}

func TestExternal_PreRegisteredPasswordDoesNotCaptureIdentity(t *testing.T) {
	st := newTestStore(t)
	squatter, err := st.Create(t.Context(), store.CreateUserRequest{Email: "g@x.com", Password: "squatter-pw"})
	require.NoError(t, err)

	_, err = NewExternal(st).Authenticate(t.Context(), "google", googleProfile())
	require.ErrorIs(t, err, ErrLinkRequiresLogin)

	_, err = st.FindByExternalID(t.Context(), "google", "sub-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	u, err := st.FindByID(t.Context(), squatter)
	require.NoError(t, err)
	assert.False(t, u.IsExternal())

	all, err := st.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestExternal_EmailOwnedByOtherIdentity(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Create(t.Context(), store.CreateUserRequest{
		Email:      "g@x.com",
		Provider:   "google",
		ExternalID: "sub-0",
	})
	require.NoError(t, err)

	_, err = NewExternal(st).Authenticate(t.Context(), "google", googleProfile())
	require.ErrorIs(t, err, ErrLinkRequiresLogin)

	_, err = st.FindByExternalID(t.Context(), "google", "sub-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestExternal_Link(t *testing.T) {
	st := newTestStore(t)
	id, err := st.Create(t.Context(), store.CreateUserRequest{Email: "g@x.com", Password: "p1"})
	require.NoError(t, err)

	e := NewExternal(st)
	u, err := e.Link(t.Context(), id, "google", googleProfile())
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "google", u.Provider)
	assert.True(t, u.Password.Equal("p1"))

	u, err = e.Authenticate(t.Context(), "google", googleProfile())
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
}

func TestExternal_Link_EmailMismatch(t *testing.T) {
	st := newTestStore(t)
	id, err := st.Create(t.Context(), store.CreateUserRequest{Email: "other@x.com", Password: "p1"})
	require.NoError(t, err)

	e := NewExternal(st)
	_, err = e.Link(t.Context(), id, "google", googleProfile())
	require.ErrorIs(t, err, ErrLinkRequiresLogin)

	unverified := googleProfile()
	unverified.EmailVerified = false
	_, err = e.Link(t.Context(), id, "google", unverified)
	require.ErrorIs(t, err, ErrLinkRequiresLogin)

	_, err = e.Link(t.Context(), id, "", googleProfile())
	require.ErrorIs(t, err, ErrInvalidProfile)
}

func TestExternal_KeepsUploadedPhoto(t *testing.T) {
	st := newTestStore(t)
	e := NewExternal(st)

	u, err := e.Authenticate(t.Context(), "google", googleProfile())
	require.NoError(t, err)

	_, err = st.Update(t.Context(), u.ID, func(u *store.User) error {
		u.Photo = "/photos/mine.png"
		return nil
	})
	require.NoError(t, err)

	u, err = e.Authenticate(t.Context(), "google", googleProfile())
	require.NoError(t, err)
	assert.Equal(t, "/photos/mine.png", u.Photo)
}

func TestExternal_InvalidProfile(t *testing.T) {
	e := NewExternal(newTestStore(t))

	_, err := e.Authenticate(t.Context(), "google", oauth.User{})
	require.ErrorIs(t, err, ErrInvalidProfile)

	_, err = e.Authenticate(t.Context(), "", googleProfile())
	require.ErrorIs(t, err, ErrInvalidProfile)
}

func TestExternal_ConcurrentFirstLogin(t *testing.T) {
	st := newTestStore(t)
	e := NewExternal(st)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Authenticate(t.Context(), "google", googleProfile())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := st.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
