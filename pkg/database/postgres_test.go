package database

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/church-schedule-api/internal/models"
	"github.com/noah-isme/church-schedule-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "church", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=church sslmode=disable", dsn)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.NotEmpty(t, entries)
}

// Every non-empty weekday set, Sunday included, must satisfy the column check.
func TestWeekdaysCheckAcceptsEveryStoredSet(t *testing.T) {
	raw, err := migrationFS.ReadFile("migrations/00001_init.sql")
	require.NoError(t, err)

	check := regexp.MustCompile(`weekdays\s+SMALLINT NOT NULL CHECK \(weekdays > 0 AND weekdays <= (\d+) AND \(weekdays & 1\) = 0\)`).FindSubmatch(raw)
	require.NotNil(t, check, "weekdays column check not found")
	upper, err := strconv.ParseInt(string(check[1]), 10, 64)
	require.NoError(t, err)

	days := []models.Weekday{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday, models.Saturday, models.Sunday}
	for mask := 1; mask < 1<<len(days); mask++ {
		var set models.WeekdaySet
		for i, day := range days {
			if mask&(1<<i) != 0 {
				set = set.With(day)
			}
		}
		value, err := set.Value()
		require.NoError(t, err)
		stored := value.(int64)
		assert.True(t, stored > 0 && stored <= upper && stored&1 == 0, "set %v stored as %d violates the check", set, stored)
	}

	full, _ := models.NewWeekdaySet(days...).Value()
	assert.Equal(t, upper, full)
}
