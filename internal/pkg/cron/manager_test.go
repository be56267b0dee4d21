package cron

import (
	"Mallchat/internal/job"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RegisterJobs(t *testing.T) {
	mgr := NewCronManager(job.NewSensitiveWordJob(nil), job.NewWxTokenJob(nil))
	require.NoError(t, mgr.RegisterJobs())
	assert.Len(t, mgr.engine.Entries(), 2)
}
