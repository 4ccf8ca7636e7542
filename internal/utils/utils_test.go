package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-directory-session/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValueAndPtr(t *testing.T) {
	var missing *string
	require.Equal(t, "", utils.Value(missing))
	require.Equal(t, "0400 000 000", utils.Value(utils.Ptr("0400 000 000")))
	require.Equal(t, 7, utils.Value(utils.Ptr(7)))
}

func TestMessages(t *testing.T) {
	require.Equal(t, []string{"taken"}, utils.Messages("taken"))
	require.Equal(t, []string{"a", "b"}, utils.Messages([]any{"a", 3, "b"}))
	require.Nil(t, utils.Messages(map[string]any{"x": "y"}))
	require.Nil(t, utils.Messages(nil))
	require.Empty(t, utils.ToStringSlice([]any{1, 2.5}))
}
