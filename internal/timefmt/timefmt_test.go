package timefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_DefaultLayout(t *testing.T) {
	f, err := New("UTC", "")
	require.NoError(t, err)

	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "2:05:07 PM", f.Format(ts))
}

func TestFormat_ConvertsZone(t *testing.T) {
	f, err := New("Asia/Tokyo", "15:04")
	require.NoError(t, err)

	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "08:30", f.Format(ts))
}

func TestNew_UnknownLocation(t *testing.T) {
	f, err := New("Nowhere/Special", "")
	assert.Error(t, err)
	assert.Nil(t, f)
}
