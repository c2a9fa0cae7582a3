package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"noor-storefront/internal/domain"
	"noor-storefront/internal/repository/state"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingStorage) Load(context.Context, string) ([]byte, error) {
	return nil, f.loadErr
}

func (f *failingStorage) Save(context.Context, string, []byte) error {
	f.saves++
	return f.saveErr
}

var testUser = domain.User{ID: 7, Email: "amina@example.com", FirstName: "Amina", LastName: "K"}

func TestStore_SetAuthAndClear(t *testing.T) {
	s := New(nil, nil)

	s.SetAuth(testUser, "access-1", "refresh-1")
	snap := s.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, testUser, *snap.User)
	assert.Equal(t, "access-1", snap.AccessToken)
	assert.Equal(t, "refresh-1", snap.RefreshToken)
	assert.True(t, snap.Authenticated())

	s.ClearAuth()
	snap = s.Snapshot()
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.AccessToken)
	assert.Empty(t, snap.RefreshToken)
	assert.False(t, snap.Authenticated())
}

func TestStore_SetAccessTokenKeepsOtherFields(t *testing.T) {
	s := New(nil, nil)
	s.SetAuth(testUser, "access-1", "refresh-1")

	s.SetAccessToken("access-2")

	snap := s.Snapshot()
	assert.Equal(t, "access-2", snap.AccessToken)
	assert.Equal(t, "refresh-1", snap.RefreshToken)
	assert.Equal(t, testUser, *snap.User)
}

func TestStore_SetAccessTokenIgnoredWithoutUser(t *testing.T) {
	s := New(nil, nil)
	s.SetAccessToken("orphan")
	assert.Empty(t, s.Snapshot().AccessToken)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := New(nil, nil)
	s.SetAuth(testUser, "a", "r")

	snap := s.Snapshot()
	snap.User.Email = "changed@example.com"

	assert.Equal(t, testUser.Email, s.Snapshot().User.Email)
}

func TestStore_ReadersNeverSeeMismatchedState(t *testing.T) {
	s := New(nil, nil)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	mismatches := 0
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := s.Snapshot()
			if (snap.User == nil) != (snap.AccessToken == "") {
				mu.Lock()
				mismatches++
				mu.Unlock()
			}
		}
	}()

	for i := 0; i < 500; i++ {
		s.SetAuth(testUser, "a", "r")
		s.SetAccessToken("b")
		s.ClearAuth()
	}
	close(stop)
	wg.Wait()

	assert.Zero(t, mismatches)
}

func TestStore_SubscribeReceivesSnapshots(t *testing.T) {
	s := New(nil, nil)
	var got []State
	unsubscribe := s.Subscribe(func(st State) { got = append(got, st) })

	s.SetAuth(testUser, "a", "r")
	s.ClearAuth()
	unsubscribe()
	s.SetAuth(testUser, "a", "r")

	require.Len(t, got, 2)
	assert.True(t, got[0].Authenticated())
	assert.False(t, got[1].Authenticated())
}

func TestStore_SubscribersEndOnLatestSnapshot(t *testing.T) {
	s := New(nil, nil)
	var mu sync.Mutex
	var tokens []string
	s.Subscribe(func(st State) {
		mu.Lock()
		tokens = append(tokens, st.AccessToken)
		mu.Unlock()
	})
	s.SetAuth(testUser, "start", "r")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.SetAccessToken(fmt.Sprintf("access-%d", i))
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, tokens)
	assert.Equal(t, s.Snapshot().AccessToken, tokens[len(tokens)-1])
}

func TestStore_PersistsFlatRecord(t *testing.T) {
	ctx := context.Background()
	repo := state.NewMemory()
	s := New(repo, nil)

	s.SetAuth(testUser, "access-1", "refresh-1")

	raw, err := repo.Load(ctx, StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"user": {"id": 7, "email": "amina@example.com", "first_name": "Amina", "last_name": "K"},
		"accessToken": "access-1",
		"refreshToken": "refresh-1"
	}`, string(raw))

	s.ClearAuth()
	raw, err = repo.Load(ctx, StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user": null, "accessToken": null, "refreshToken": null}`, string(raw))
}

func TestStore_HydrateRestoresPersistedSession(t *testing.T) {
	ctx := context.Background()
	repo := state.NewMemory()
	New(repo, nil).SetAuth(testUser, "access-1", "refresh-1")

	restarted := New(repo, nil)
	assert.False(t, restarted.Snapshot().Hydrated)

	require.NoError(t, restarted.Hydrate(ctx))

	snap := restarted.Snapshot()
	assert.True(t, snap.Hydrated)
	assert.True(t, snap.Authenticated())
	assert.Equal(t, "refresh-1", snap.RefreshToken)
	select {
	case <-restarted.Ready():
	default:
		t.Fatal("ready channel should be closed after hydration")
	}
}

func TestStore_HydrateWithNothingPersisted(t *testing.T) {
	s := New(state.NewMemory(), nil)
	require.NoError(t, s.Hydrate(context.Background()))
	snap := s.Snapshot()
	assert.True(t, snap.Hydrated)
	assert.False(t, snap.Authenticated())
}

func TestStore_HydrateRunsOnce(t *testing.T) {
	ctx := context.Background()
	repo := state.NewMemory()
	s := New(repo, nil)
	require.NoError(t, s.Hydrate(ctx))

	hydrations := 0
	s.Subscribe(func(st State) {
		if st.Hydrated {
			hydrations++
		}
	})
	New(repo, nil).SetAuth(testUser, "a", "r")
	require.NoError(t, s.Hydrate(ctx))

	assert.Zero(t, hydrations)
	assert.False(t, s.Snapshot().Authenticated(), "second hydrate must not reload")
}

func TestStore_HydrateDiscardsInconsistentRecord(t *testing.T) {
	ctx := context.Background()
	repo := state.NewMemory()
	require.NoError(t, repo.Save(ctx, StorageKey, []byte(`{"user": {"id": 1}, "accessToken": null, "refreshToken": "r"}`)))

	s := New(repo, nil)
	require.NoError(t, s.Hydrate(ctx))

	snap := s.Snapshot()
	assert.True(t, snap.Hydrated)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.RefreshToken)
}

func TestStore_HydrateLoadErrorStillSignalsReady(t *testing.T) {
	s := New(&failingStorage{loadErr: errors.New("disk gone")}, nil)

	err := s.Hydrate(context.Background())

	assert.Error(t, err)
	assert.True(t, s.Snapshot().Hydrated)
	assert.NoError(t, s.WaitReady(context.Background()))
}

func TestStore_HydrateCorruptRecord(t *testing.T) {
	ctx := context.Background()
	repo := state.NewMemory()
	require.NoError(t, repo.Save(ctx, StorageKey, []byte(`not json`)))

	s := New(repo, nil)
	assert.Error(t, s.Hydrate(ctx))
	assert.True(t, s.Snapshot().Hydrated)
}

func TestStore_PersistFailureDoesNotFailMutation(t *testing.T) {
	storage := &failingStorage{saveErr: errors.New("read-only")}
	s := New(storage, nil)

	s.SetAuth(testUser, "a", "r")

	assert.True(t, s.Snapshot().Authenticated())
	assert.Equal(t, 1, storage.saves)
}

func TestStore_SetHydratedIsNotPersisted(t *testing.T) {
	storage := &failingStorage{}
	s := New(storage, nil)
	s.SetHydrated(true)
	assert.Zero(t, storage.saves)
}

func TestStore_WaitReadyHonoursContext(t *testing.T) {
	s := New(nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitReady(ctx), context.DeadlineExceeded)
}

func TestStore_AccessTokenExpiry(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7,
		"exp":     exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	s := New(nil, nil)
	_, ok := s.AccessTokenExpiry()
	assert.False(t, ok)

	s.SetAuth(testUser, signed, "r")
	got, ok := s.AccessTokenExpiry()
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	s.SetAccessToken("opaque")
	_, ok = s.AccessTokenExpiry()
	assert.False(t, ok)
}

func TestRecord_JSONShape(t *testing.T) {
	data := encodeRecord(State{User: &testUser, AccessToken: "a", RefreshToken: "r", Hydrated: true})
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.NotContains(t, m, "Hydrated")
	assert.NotContains(t, m, "isHydrated")
	assert.Len(t, m, 3)
}
