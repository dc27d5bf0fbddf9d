package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeClient struct {
	endpoint string
	closed   bool
}

func (f *fakeClient) Endpoint() string { return f.endpoint }
func (f *fakeClient) Close() error     { f.closed = true; return nil }

func TestGetOrCreate_ConstructsOncePerKey(t *testing.T) {
	var calls int32
	p := New(func(endpoint, fingerprint string) (SharedClient, error) {
		atomic.AddInt32(&calls, 1)
		return &fakeClient{endpoint: endpoint}, nil
	})

	key := Key{EndpointURL: "https://ic0.app", IdentityFingerprint: "alice"}

	c1, err := p.GetOrCreate(key)
	require.NoError(t, err)
	c2, err := p.GetOrCreate(key)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrCreate_DistinctKeysGetDistinctClients(t *testing.T) {
	p := New(func(endpoint, fingerprint string) (SharedClient, error) {
		return &fakeClient{endpoint: endpoint}, nil
	})

	c1, err := p.GetOrCreate(Key{EndpointURL: "https://ic0.app", IdentityFingerprint: "alice"})
	require.NoError(t, err)
	c2, err := p.GetOrCreate(Key{EndpointURL: "https://ic0.app", IdentityFingerprint: "bob"})
	require.NoError(t, err)
	c3, err := p.GetOrCreate(Key{EndpointURL: "http://127.0.0.1:4943", IdentityFingerprint: "alice"})
	require.NoError(t, err)

	assert.NotSame(t, c1, c2)
	assert.NotSame(t, c1, c3)
	assert.Equal(t, 3, p.Len())
}

func TestGetOrCreate_ConcurrentCallersShareOneConstruction(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	p := New(func(endpoint, fingerprint string) (SharedClient, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &fakeClient{endpoint: endpoint}, nil
	})

	key := Key{EndpointURL: "https://ic0.app", IdentityFingerprint: "alice"}

	var wg sync.WaitGroup
	results := make([]SharedClient, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c, err := p.GetOrCreate(key)
			assert.NoError(t, err)
			results[idx] = c
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, c := range results[1:] {
		assert.Same(t, results[0], c)
	}
}

func TestGetOrCreate_FailurePermitsRetry(t *testing.T) {
	var calls int32
	p := New(func(endpoint, fingerprint string) (SharedClient, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return nil, errors.New("dial failed")
		}
		return &fakeClient{endpoint: endpoint}, nil
	})

	key := Key{EndpointURL: "https://ic0.app", IdentityFingerprint: "alice"}

	_, err := p.GetOrCreate(key)
	require.Error(t, err)

	c, err := p.GetOrCreate(key)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestKey_String(t *testing.T) {
	k := Key{EndpointURL: "https://ic0.app", IdentityFingerprint: "alice"}
	assert.Equal(t, "https://ic0.app|alice", k.String())
}

// TestGetOrCreate_NeverClosesPooledClient pins down the "Pool does not call
// Close itself" contract documented on SharedClient: entries live for the
// process lifetime, so GetOrCreate must never invoke Close on what it hands
// out, even across repeat lookups of the same key.
func TestGetOrCreate_NeverClosesPooledClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockSharedClient(ctrl)
	mock.EXPECT().Endpoint().Return("https://ic0.app").AnyTimes()
	mock.EXPECT().Close().Times(0)

	p := New(func(endpoint, fingerprint string) (SharedClient, error) {
		return mock, nil
	})

	key := Key{EndpointURL: "https://ic0.app", IdentityFingerprint: "alice"}

	c1, err := p.GetOrCreate(key)
	require.NoError(t, err)
	c2, err := p.GetOrCreate(key)
	require.NoError(t, err)

	assert.Same(t, mock, c1)
	assert.Same(t, mock, c2)
	assert.Equal(t, "https://ic0.app", c1.Endpoint())
}
