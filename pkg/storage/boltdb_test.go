package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "view.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSaveAndLoadView(t *testing.T) {
	s, _ := openStore(t)

	tests := []struct {
		resource string
		view     store.View
	}{
		{"check", store.View{Page: 3, Filter: action.Filter{"name": "web"}}},
		{"log", store.View{Page: 0, Filter: action.Filter{}}},
		{"node", store.View{}},
	}

	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			require.NoError(t, s.SaveView(tt.resource, tt.view))
			got, err := s.LoadView(tt.resource)
			require.NoError(t, err)
			assert.Equal(t, tt.view, got)
		})
	}

	// The three filter states survive the round trip
	got, err := s.LoadView("log")
	require.NoError(t, err)
	assert.NotNil(t, got.Filter)
	got, err = s.LoadView("node")
	require.NoError(t, err)
	assert.Nil(t, got.Filter)
}

func TestLoadMissingView(t *testing.T) {
	s, _ := openStore(t)

	_, err := s.LoadView("alert")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteAndListViews(t *testing.T) {
	s, _ := openStore(t)

	require.NoError(t, s.SaveView("check", store.View{Page: 1}))
	require.NoError(t, s.SaveView("alert", store.View{Page: 2}))
	require.NoError(t, s.DeleteView("check"))

	views, err := s.ListViews()
	require.NoError(t, err)
	assert.Equal(t, map[string]store.View{"alert": {Page: 2}}, views)
}

func TestViewsPersistAcrossReopen(t *testing.T) {
	s, path := openStore(t)
	require.NoError(t, s.SaveView("audit", store.View{Page: 4}))
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	view, err := reopened.LoadView("audit")
	require.NoError(t, err)
	assert.Equal(t, 4, view.Page)
}

func TestBindServerClearsOnChange(t *testing.T) {
	s, _ := openStore(t)

	require.NoError(t, s.BindServer("https://a.example.com"))
	require.NoError(t, s.SaveView("check", store.View{Page: 1}))

	// Same server keeps the views
	require.NoError(t, s.BindServer("https://a.example.com"))
	_, err := s.LoadView("check")
	require.NoError(t, err)

	require.NoError(t, s.BindServer("https://b.example.com"))
	_, err = s.LoadView("check")
	assert.True(t, errors.Is(err, ErrNotFound))
}
