package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	t.Run("empty context has no fields", func(t *testing.T) {
		assert.Empty(t, GetLogFields(context.Background()))
	})

	t.Run("fields keep a stable order", func(t *testing.T) {
		ctx := WithServiceName(context.Background(), "audience-api")
		ctx = WithScope(ctx, "owner-1", "company-1")
		ctx = WithRequestID(ctx, "req-1")

		assert.Equal(t, []interface{}{
			"request_id", "req-1",
			"owner_id", "owner-1",
			"company_id", "company-1",
			"service_name", "audience-api",
		}, GetLogFields(ctx))
	})

	t.Run("empty scope values are skipped", func(t *testing.T) {
		ctx := WithScope(context.Background(), "", "company-1")
		assert.Equal(t, []interface{}{"company_id", "company-1"}, GetLogFields(ctx))
	})
}
