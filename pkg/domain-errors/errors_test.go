package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode_WalksWrappedChain(t *testing.T) {
	inner := New(CodeCalendarDataMissing, "holiday data not published")
	outer := Wrap(inner, CodeUnavailable, "deadline could not be computed")

	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.True(t, HasCode(outer, CodeCalendarDataMissing))
	assert.False(t, HasCode(outer, CodeNotFound))
	assert.Equal(t, CodeUnavailable, CodeOf(outer))
}

func TestHasCode_ThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("store: %w", New(CodeConflict, "stale"))
	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
}

func TestUserMessage_HidesCause(t *testing.T) {
	err := Wrap(errors.New("pq: connection refused on 10.0.0.4:5432"), CodeInternal, "We could not save your application.")
	assert.Equal(t, "We could not save your application.", UserMessage(err))
	assert.Equal(t, "Something went wrong on our side.", UserMessage(errors.New("redis: i/o timeout")))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeFutureSubmission))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(CodeConflict))
	assert.Equal(t, http.StatusFailedDependency, ToHTTPStatus(CodeCalendarDataMissing))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(Code("unknown")))
}
