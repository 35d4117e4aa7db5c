package client

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	testCases := []struct {
		description string
		code        int
		expect      Kind
	}{
		{description: "bad credentials", code: 8002, expect: KindAuth},
		{description: "expired key", code: 8003, expect: KindAuth},
		{description: "missing key", code: 8004, expect: KindAuth},
		{description: "invalid request", code: 8000, expect: KindBadInput},
		{description: "execution quota", code: 2000, expect: KindQuota},
		{description: "running quota", code: 2001, expect: KindQuota},
		{description: "unrecognized", code: 9999, expect: KindUnknown},
	}
	for _, testCase := range testCases {
		actual := NewError(testCase.code, "boom").Kind()
		assert.EqualValues(t, testCase.expect, actual, testCase.description)
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("connecting: %w", NewError(8003, "key expired"))
	assert.True(t, IsAuth(wrapped))
	assert.False(t, IsQuota(wrapped))
	assert.True(t, IsQuota(NewError(2001, "too many running")))
	assert.False(t, IsAuth(fmt.Errorf("plain failure")))
}

func TestErrorMessage(t *testing.T) {
	err := NewError(8002, "invalid key")
	assert.Contains(t, err.Error(), "8002")
	assert.Contains(t, err.Error(), "invalid key")
	assert.Contains(t, err.Error(), "connect again")
}
