package errors_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finsentry/aml-insight/pkg/errors"
)

func TestHTTPStatusForCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{errors.ErrCodeBadRequest, http.StatusBadRequest},
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodePartnerNotFound, http.StatusNotFound},
		{errors.ErrCodeLLMUnavailable, http.StatusServiceUnavailable},
		{errors.ErrCodeLLMParseFailure, http.StatusBadGateway},
		{errors.ErrCodeDataSourceUnavailable, http.StatusInternalServerError},
		{errors.ErrorCode("NOPE_999"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, errors.HTTPStatusForCode(tc.code), string(tc.code))
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "partner not found", errors.DefaultMessageForCode(errors.ErrCodePartnerNotFound))
	assert.Equal(t, "unknown error", errors.DefaultMessageForCode(errors.ErrorCode("NOPE_999")))
}

func TestClientServerErrorClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsClientError(errors.ErrCodeBadRequest))
	assert.True(t, errors.IsClientError(errors.ErrCodePartnerNotFound))
	assert.False(t, errors.IsClientError(errors.ErrCodeInternal))

	assert.True(t, errors.IsServerError(errors.ErrCodeInternal))
	assert.True(t, errors.IsServerError(errors.ErrCodeLLMUnavailable))
	assert.False(t, errors.IsServerError(errors.ErrCodeBadRequest))
}

func TestModuleForCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "PRT", errors.ModuleForCode(errors.ErrCodePartnerNotFound))
	assert.Equal(t, "LLM", errors.ModuleForCode(errors.ErrCodeLLMUnavailable))
	assert.Equal(t, "COMMON", errors.ModuleForCode(errors.ErrCodeInternal))
}
