package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartAcquireAndEndDoNotPanicWithNoopTracer(t *testing.T) {
	ctx, span := StartAcquire(context.Background(), "testpool", 2)
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { End(span, nil) })
}

func TestStartReleaseAndEndWithErrorDoNotPanicWithNoopTracer(t *testing.T) {
	ctx, span := StartRelease(context.Background(), "testpool", 0)
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { End(span, errors.New("boom")) })
}
