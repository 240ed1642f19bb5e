package tenant

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithNamespaceRoundTrip(t *testing.T) {
	ctx := WithNamespace(context.Background(), "acme_1a2b3c4d")

	schema, ok := NamespaceFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "acme_1a2b3c4d", schema)
}

func TestNamespaceFromUnboundContext(t *testing.T) {
	schema, ok := NamespaceFrom(context.Background())
	assert.False(t, ok)
	assert.Empty(t, schema)
}

func TestWithNamespaceDerivesNewContext(t *testing.T) {
	parent := WithNamespace(context.Background(), "first_schema")
	child := WithNamespace(parent, "second_schema")

	schema, _ := NamespaceFrom(child)
	assert.Equal(t, "second_schema", schema)

	// The parent binding is untouched
	schema, _ = NamespaceFrom(parent)
	assert.Equal(t, "first_schema", schema)
}

func TestNamespaceIsolationAcrossGoroutines(t *testing.T) {
	const workers = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			want := fmt.Sprintf("tenant_%d", n)
			ctx := WithNamespace(context.Background(), want)

			for j := 0; j < 100; j++ {
				got, ok := NamespaceFrom(ctx)
				if !ok || got != want {
					errs <- fmt.Errorf("worker %d observed %q", n, got)
					return
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
