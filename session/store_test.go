package session

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	token   string
	saveErr error
	saves   int
	clears  int
}

func (m *memPersister) Load() (string, error) { return m.token, nil }

func (m *memPersister) Save(token string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.token = token
	return nil
}

func (m *memPersister) Clear() error {
	m.clears++
	m.token = ""
	return nil
}

func TestStore_Lifecycle(t *testing.T) {
	s, err := NewStore(nil, zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, s.Authenticated())
	assert.ErrorIs(t, s.Require(), ErrNotAuthenticated)

	require.NoError(t, s.SetToken("abc"))
	assert.Equal(t, "abc", s.Token())
	assert.True(t, s.Authenticated())
	assert.NoError(t, s.Require())

	require.NoError(t, s.SetToken("def"))
	assert.Equal(t, "def", s.Token())

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Token())
	assert.ErrorIs(t, s.Require(), ErrNotAuthenticated)
}

func TestStore_EmptyTokenClears(t *testing.T) {
	p := &memPersister{token: "old"}
	s, err := NewStore(p, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "old", s.Token())

	require.NoError(t, s.SetToken(""))
	assert.False(t, s.Authenticated())
	assert.Equal(t, 1, p.clears)
}

func TestStore_Persister(t *testing.T) {
	p := &memPersister{}
	s, err := NewStore(p, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.SetToken("abc"))
	assert.Equal(t, "abc", p.token)
	assert.Equal(t, 1, p.saves)

	p.saveErr = errors.New("disk full")
	err = s.SetToken("xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	// the in-memory token still reflects the latest login
	assert.Equal(t, "xyz", s.Token())
}

func TestStore_Concurrent(t *testing.T) {
	s, err := NewStore(nil, zerolog.Nop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetToken("abc")
		}()
		go func() {
			defer wg.Done()
			_ = s.Token()
		}()
	}
	wg.Wait()
	assert.Equal(t, "abc", s.Token())
}

func TestBoltPersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	p, err := OpenBolt(path, "http://localhost:8000/api/v1/")
	require.NoError(t, err)

	token, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, p.Save("abc"))
	require.NoError(t, p.Close())

	// same server, different spelling
	p, err = OpenBolt(path, "HTTP://LOCALHOST:8000/api/v1")
	require.NoError(t, err)
	s, err := NewStore(p, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "abc", s.Token())
	require.NoError(t, p.Close())

	// other servers keep their own token
	other, err := OpenBolt(path, "http://example.com/api/v1")
	require.NoError(t, err)
	token, err = other.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	require.NoError(t, other.Close())

	p, err = OpenBolt(path, "http://localhost:8000/api/v1")
	require.NoError(t, err)
	require.NoError(t, p.Clear())
	token, err = p.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	require.NoError(t, p.Close())
}
