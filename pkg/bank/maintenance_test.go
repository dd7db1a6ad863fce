package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaintenance_ValidSchedules(t *testing.T) {
	core := newLoadedCore(t)

	m, err := NewMaintenance(core, MaintenanceConfig{
		SweepSchedule:  "@every 5m",
		HealthSchedule: "0 * * * *",
	})
	require.NoError(t, err)

	m.Start()
	m.Stop()
}

func TestNewMaintenance_EmptySchedulesDisableJobs(t *testing.T) {
	core := newLoadedCore(t)

	m, err := NewMaintenance(core, MaintenanceConfig{})
	require.NoError(t, err)

	m.Start()
	m.Stop()
}

func TestNewMaintenance_RejectsInvalidExpression(t *testing.T) {
	core := newLoadedCore(t)

	_, err := NewMaintenance(core, MaintenanceConfig{SweepSchedule: "not a schedule"})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	_, err = NewMaintenance(core, MaintenanceConfig{HealthSchedule: "* * *"})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}

func TestMaintenance_SweepDropsExpiredEntries(t *testing.T) {
	core := newLoadedCore(t)

	m, err := NewMaintenance(core, MaintenanceConfig{SweepSchedule: "@every 1h"})
	require.NoError(t, err)

	// Without a max age nothing is ever swept.
	before := core.CacheStats().CurrentSize
	m.sweep()
	assert.Equal(t, before, core.CacheStats().CurrentSize)
}

func TestMaintenance_ScheduledHealthCheck(t *testing.T) {
	core := newLoadedCore(t)

	m, err := NewMaintenance(core, MaintenanceConfig{HealthSchedule: "@every 1h"})
	require.NoError(t, err)

	// Degraded and healthy stores are both checked without panicking.
	m.healthCheck()
}
