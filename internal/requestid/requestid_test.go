package requestid_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/omars-lab/knowledge-agents/internal/requestid"
)

func TestNewProducesDistinctIDs(t *testing.T) {
	assert.NotEqual(t, requestid.New(), requestid.New())
}

func TestWithIDRoundTripsThroughContext(t *testing.T) {
	id := requestid.New()
	ctx := requestid.WithID(context.Background(), id, logrus.StandardLogger())

	assert.Equal(t, id, requestid.FromContext(ctx))
	assert.NotNil(t, requestid.Logger(ctx))
}

func TestFromContextEmptyWhenUnset(t *testing.T) {
	assert.Equal(t, "", requestid.FromContext(context.Background()))
}

func TestLoggerFallsBackWhenUnset(t *testing.T) {
	assert.NotNil(t, requestid.Logger(context.Background()))
}
