package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBackendTablesStayInTaxonomy(t *testing.T) {
	for name, table := range map[string]StatusTable{"pbs": pbsStatuses, "slurm": slurmStatuses} {
		for code, want := range table {
			got := Normalize(table, code)
			assert.Equal(t, want, got, "%s code %q", name, code)
			assert.GreaterOrEqual(t, int(got), int(StatusOther))
			assert.LessOrEqual(t, int(got), int(StatusFailed))
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		table StatusTable
		input string
		want  Status
	}{
		{pbsStatuses, "R", StatusRunning},
		{pbsStatuses, "r", StatusRunning},
		{pbsStatuses, "Q", StatusPending},
		{pbsStatuses, "E", StatusCompleting},
		{pbsStatuses, "F", StatusCompleted},
		{slurmStatuses, "PD", StatusPending},
		{slurmStatuses, "running", StatusRunning},
		{slurmStatuses, "COMPLETING", StatusCompleting},
		{slurmStatuses, "CD", StatusCompleted},
		{slurmStatuses, "CANCELLED by 4840", StatusFailed},
		{slurmStatuses, "RUNNING+", StatusRunning},
		{slurmStatuses, "OUT_OF_MEMORY", StatusFailed},
		{nil, "PENDING", StatusPending},
		{nil, "R", StatusOther},
		{pbsStatuses, "ZZ", StatusOther},
		{slurmStatuses, "", StatusOther},
		{slurmStatuses, "   ", StatusOther},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Normalize(tc.table, tc.input), "Normalize(%q)", tc.input)
	}
}

func TestStatusActive(t *testing.T) {
	for _, s := range ActiveStates {
		assert.True(t, s.Active(), s.String())
	}
	assert.False(t, StatusCompleted.Active())
	assert.False(t, StatusFailed.Active())
	assert.False(t, StatusOther.Active())

	assert.False(t, StatusPending.HasOutput())
	assert.True(t, StatusRunning.HasOutput())
	assert.True(t, StatusCompleting.HasOutput())
}

func TestStatusText(t *testing.T) {
	b, err := StatusCompleting.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "completing", string(b))

	var s Status
	assert.NoError(t, s.UnmarshalText([]byte("Running")))
	assert.Equal(t, StatusRunning, s)

	assert.Equal(t, "other", Status(42).String())
}
