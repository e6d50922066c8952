package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationID(t *testing.T) {
	var seenHeader, seenCtx string
	handler := CorrelationID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get(logger.CorrelationIDHeader)
		seenCtx = logger.GetCorrelationIDFromContext(r.Context())
	}))

	t.Run("generates a UUID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))

		_, err := uuid.Parse(seenHeader)
		require.NoError(t, err)
		assert.Equal(t, seenHeader, seenCtx)
		assert.Equal(t, seenHeader, rec.Header().Get(logger.CorrelationIDHeader))
	})

	t.Run("ignores client supplied id", func(t *testing.T) {
		client := uuid.NewString()
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.Header.Set(logger.CorrelationIDHeader, client)

		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, client, seenHeader)
		assert.Equal(t, seenHeader, seenCtx)
	})
}
