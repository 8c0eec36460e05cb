package amount_test

import (
	"testing"

	"github.com/agentcore/escrowd/pkg/amount"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		tests := []struct {
			in        string
			precision int32
			expected  uint64
		}{
			{"1", 8, 100000000},
			{"1.5", 8, 150000000},
			{"0.00000001", 8, 1},
			{"42", 0, 42},
			{"0", 8, 0},
			{"184467440737.09551615", 8, 18446744073709551615},
		}
		for _, tt := range tests {
			units, err := amount.ToBaseUnits(tt.in, tt.precision)
			require.NoError(t, err, tt.in)
			require.Equal(t, tt.expected, units, tt.in)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			in          string
			precision   int32
			expectedErr error
		}{
			{"abc", 8, amount.ErrInvalidAmount},
			{"-1", 8, amount.ErrNegativeAmount},
			{"0.000000001", 8, amount.ErrTooManyDecimals},
			{"1.5", 0, amount.ErrTooManyDecimals},
			{"184467440737.09551616", 8, amount.ErrAmountOutOfRange},
			{"1", 19, amount.ErrInvalidPrecision},
		}
		for _, tt := range tests {
			_, err := amount.ToBaseUnits(tt.in, tt.precision)
			require.ErrorIs(t, err, tt.expectedErr, tt.in)
		}
	})
}

func TestFromBaseUnits(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1.5", amount.FromBaseUnits(150000000, 8))
	require.Equal(t, "0.00000001", amount.FromBaseUnits(1, 8))
	require.Equal(t, "42", amount.FromBaseUnits(42, 0))
	require.Equal(t, "0", amount.FromBaseUnits(0, 8))
}
