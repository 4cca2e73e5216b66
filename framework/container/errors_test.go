package container_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/km-arc/go-containers/framework/container"
)

func TestError_Format(t *testing.T) {
	err := &container.Error{
		Code:    container.ErrCodeConstructionFailed,
		Message: "could not construct db.Pool",
		Service: "db.Pool",
		Cause:   errors.New("timeout"),
	}
	assert.Equal(t, `[CONSTRUCTION_FAILED] service="db.Pool": could not construct db.Pool: timeout`, err.Error())
}

func TestError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("bootstrap: %w", &container.Error{Code: container.ErrCodeNotRegistered, Message: "x"})

	assert.ErrorIs(t, err, container.ErrNotRegistered)
	assert.NotErrorIs(t, err, container.ErrAmbiguousRegistration)
	assert.True(t, container.IsNotRegistered(err))
	assert.False(t, container.IsScopeMisuse(err))
	assert.False(t, container.IsNotRegistered(errors.New("plain")))
	assert.False(t, container.IsNotRegistered(nil))
}

func TestErrorCode_String(t *testing.T) {
	tests := map[container.ErrorCode]string{
		container.ErrCodeNotRegistered:         "NOT_REGISTERED",
		container.ErrCodeAmbiguousRegistration: "AMBIGUOUS_REGISTRATION",
		container.ErrCodeConstructionFailed:    "CONSTRUCTION_FAILED",
		container.ErrCodeCyclicResolution:      "CYCLIC_RESOLUTION",
		container.ErrCodeScopeMisuse:           "SCOPE_MISUSE",
		container.ErrCodeInvalidRegistration:   "INVALID_REGISTRATION",
		container.ErrCodeContainerDisposed:     "CONTAINER_DISPOSED",
		container.ErrorCode(999):               "UNKNOWN(999)",
	}
	for code, want := range tests {
		assert.Equal(t, want, code.String())
	}
}

func TestParseLifetime(t *testing.T) {
	tests := []struct {
		in      string
		want    container.Lifetime
		wantErr bool
	}{
		{"transient", container.Transient, false},
		{"Scoped", container.Scoped, false},
		{"scope", container.Scoped, false},
		{" request ", container.Request, false},
		{"perrequest", container.Request, false},
		{"SINGLETON", container.Singleton, false},
		{"forever", container.Transient, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := container.ParseLifetime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseScopePolicy(t *testing.T) {
	p, err := container.ParseScopePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, container.ScopePermissive, p)

	p, err = container.ParseScopePolicy("Strict")
	assert.NoError(t, err)
	assert.Equal(t, container.ScopeStrict, p)
	assert.Equal(t, "strict", p.String())

	_, err = container.ParseScopePolicy("lenient")
	assert.Error(t, err)
}

func TestLifetime_String(t *testing.T) {
	assert.Equal(t, "request", container.Request.String())
	assert.Equal(t, "lifetime(7)", container.Lifetime(7).String())
	assert.False(t, container.Lifetime(7).Valid())
	assert.True(t, container.Singleton.Valid())
}
