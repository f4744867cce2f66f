package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCurrencyLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/name/France":
			w.Write([]byte(`[{"currencies":{"eur":{"name":"Euro","symbol":"€"}}}]`))
		case "/name/Atlantis":
			http.NotFound(w, r)
		default:
			w.Write([]byte(`[{"currencies":{}}]`))
		}
	}))
	defer server.Close()

	lookup := NewCurrencyLookup(server.URL, "USD", 2*time.Second, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, "EUR", lookup.Lookup(ctx, "France"))
	assert.Equal(t, "USD", lookup.Lookup(ctx, "Atlantis"))
	assert.Equal(t, "USD", lookup.Lookup(ctx, "Nowhere"))
	assert.Equal(t, "USD", lookup.Lookup(ctx, ""))
}

func TestCurrencyLookupUnreachableUpstream(t *testing.T) {
	lookup := NewCurrencyLookup("http://127.0.0.1:1", "GBP", 200*time.Millisecond, zap.NewNop())
	assert.Equal(t, "GBP", lookup.Lookup(context.Background(), "France"))
}
