package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpecIDRefundQuotient(t *testing.T) {
	tests := []struct {
		spec SpecID
		want uint64
	}{
		{Frontier, 2},
		{Istanbul, 2},
		{Berlin, 2},
		{London, 5},
		{Cancun, 5},
		{Prague, 5},
	}
	for _, tc := range tests {
		require.Equalf(t, tc.want, tc.spec.RefundQuotient(), "%s", tc.spec)
	}
}

func TestSpecIDIsEnabledIn(t *testing.T) {
	require.True(t, London.IsEnabledIn(Berlin))
	require.True(t, London.IsEnabledIn(London))
	require.False(t, Berlin.IsEnabledIn(London))
}

func TestParseSpecID(t *testing.T) {
	tests := []struct {
		in   string
		want SpecID
	}{
		{"cancun", Cancun},
		{"LONDON", London},
		{" Berlin ", Berlin},
		{"latest", Latest},
		{"constantinople", Petersburg},
		{"paris", Merge},
	}
	for _, tc := range tests {
		got, err := ParseSpecID(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseSpecID("glamsterdam")
	require.Error(t, err)
}

func TestSpecIDString(t *testing.T) {
	require.Equal(t, "Cancun", Cancun.String())
	require.Equal(t, "SpecID(200)", SpecID(200).String())
}
