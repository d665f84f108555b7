package apptime

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := SetLocation("Asia/Tokyo"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestSetLocation(t *testing.T) {
	t.Run("invalid zone keeps previous location", func(t *testing.T) {
		before := Location()
		err := SetLocation("Nowhere/Invalid")
		require.Error(t, err)
		require.Equal(t, before, Location())
	})

	t.Run("empty name means UTC", func(t *testing.T) {
		require.NoError(t, SetLocation(""))
		require.Equal(t, time.UTC, Location())
		require.NoError(t, SetLocation("Asia/Tokyo"))
	})
}

func TestSystemClock(t *testing.T) {
	now, err := SystemClock{}.Now()
	require.NoError(t, err)
	require.False(t, now.IsZero())
	require.Equal(t, Location(), now.Location())
}

func TestClockFunc(t *testing.T) {
	want := errors.New("boom")
	_, err := ClockFunc(func() (time.Time, error) { return time.Time{}, want }).Now()
	require.ErrorIs(t, err, want)

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := Fixed(fixed).Now()
	require.NoError(t, err)
	require.Equal(t, fixed, got)
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 999, time.UTC)
	require.Equal(t, "2024-03-09 07:05:01", FormatTimestamp(ts))
}

func TestParseTimestamp(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := ParseTimestamp("2024-03-09 07:05:01")
		require.NoError(t, err)
		require.Equal(t, 2024, got.Year())
		require.Equal(t, time.March, got.Month())
		require.Equal(t, 9, got.Day())
		require.Equal(t, 7, got.Hour())
		require.Equal(t, Location(), got.Location())
	})

	t.Run("round trip", func(t *testing.T) {
		in := time.Date(2023, 12, 31, 23, 59, 59, 0, Location())
		got, err := ParseTimestamp(FormatTimestamp(in))
		require.NoError(t, err)
		require.True(t, in.Equal(got))
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := ParseTimestamp("2024/03/09")
		require.Error(t, err)
	})
}

func TestFromUnix(t *testing.T) {
	got := FromUnix(1700000000)
	require.Equal(t, int64(1700000000), got.Unix())
	require.Equal(t, Location(), got.Location())

	require.WithinDuration(t, time.Now(), FromUnix(0), 5*time.Second)
}
