package crs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryBuiltins(t *testing.T) {
	reg := NewRegistry(Config{})
	for _, spelling := range []string{"EPSG:4326", "EPSG:3857", "EPSG:3006", "OGC:CRS84"} {
		def, err := reg.Resolve(context.Background(), MustParse(spelling))
		require.NoError(t, err, spelling)
		require.NotNil(t, def)
	}
}

func TestRegistryMissWithoutLookupService(t *testing.T) {
	reg := NewRegistry(Config{})
	_, err := reg.Resolve(context.Background(), MustParse("EPSG:5181"))
	require.ErrorIs(t, err, ErrUnresolved)
}

func TestRegistryInjectedEmptyCache(t *testing.T) {
	reg := NewRegistry(Config{Seed: map[ID]*Definition{}})
	_, err := reg.Resolve(context.Background(), WGS84)
	require.ErrorIs(t, err, ErrUnresolved, "an injected empty cache has no built-ins")
}

func TestRegistryLookup(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		switch r.URL.Path {
		case "/definition/EPSG:5181":
			_, _ = w.Write([]byte("+proj=tmerc +lat_0=38 +lon_0=127 +k=1 +x_0=200000 +y_0=500000 +ellps=GRS80 +units=m +no_defs"))
		case "/definition/EPSG:1111":
			_, _ = w.Write([]byte("+proj=stere +lat_0=90 +ellps=WGS84"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	reg := NewRegistry(Config{
		Seed:      map[ID]*Definition{},
		LookupURL: server.URL,
		Logger:    zap.NewNop(),
	})

	t.Run("fetches and caches a definition", func(t *testing.T) {
		id := MustParse("EPSG:5181")
		def, err := reg.Resolve(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "tmerc", def.Proj)
		assert.True(t, reg.Known(id))

		fetched := len(requests)
		_, err = reg.Resolve(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, requests, fetched, "second resolve should hit the cache")
	})

	t.Run("404 is unresolved, not fatal", func(t *testing.T) {
		_, err := reg.Resolve(context.Background(), MustParse("EPSG:424242"))
		require.ErrorIs(t, err, ErrUnresolved)
	})

	t.Run("unparseable definition is unresolved", func(t *testing.T) {
		_, err := reg.Resolve(context.Background(), MustParse("EPSG:1111"))
		require.ErrorIs(t, err, ErrUnresolved)
		assert.False(t, reg.Known(MustParse("EPSG:1111")), "failed lookups are not cached")
	})
}

func TestRegistryBoundedWait(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	reg := NewRegistry(Config{
		Seed:      map[ID]*Definition{},
		LookupURL: server.URL,
		Timeout:   50 * time.Millisecond,
	})

	start := time.Now()
	_, err := reg.Resolve(context.Background(), MustParse("EPSG:5181"))
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Less(t, time.Since(start), 5*time.Second, "a lookup must not block indefinitely")
}

func TestRegistryConcurrentResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("+proj=longlat +datum=WGS84 +no_defs"))
	}))
	defer server.Close()

	reg := NewRegistry(Config{Seed: map[ID]*Definition{}, LookupURL: server.URL})
	id := MustParse("EPSG:4258")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			def, err := reg.Resolve(context.Background(), id)
			assert.NoError(t, err)
			assert.NotNil(t, def)
		}()
	}
	wg.Wait()
	assert.True(t, reg.Known(id))
}
