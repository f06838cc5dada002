package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, Params{Page: 1, PerPage: DefaultPerPage}, Params{}.Normalize())
	require.Equal(t, Params{Page: 3, PerPage: MaxPerPage}, Params{Page: 3, PerPage: 500}.Normalize())
	require.Equal(t, Params{Page: 1, PerPage: 5}, Params{Page: -2, PerPage: 5}.Normalize())
}

func TestClamp(t *testing.T) {
	require.Equal(t, Params{Page: 1, PerPage: 1}, Params{Page: 0, PerPage: 0}.Clamp())
	require.Equal(t, Params{Page: 1, PerPage: MaxPerPage}, Params{Page: -4, PerPage: 500}.Clamp())
	require.Equal(t, Params{Page: 7, PerPage: 25}, Params{Page: 7, PerPage: 25}.Clamp())
}

func TestOffset(t *testing.T) {
	require.Equal(t, 0, Params{}.Offset())
	require.Equal(t, 20, Params{Page: 3, PerPage: 10}.Offset())
}

func TestLastPage(t *testing.T) {
	require.Equal(t, 1, LastPage(0, 10))
	require.Equal(t, 1, LastPage(10, 10))
	require.Equal(t, 2, LastPage(11, 10))
	require.Equal(t, 3, LastPage(21, 0))
}
