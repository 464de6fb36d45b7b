package scheduler

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStarter struct {
	mock.Mock
}

func (m *mockStarter) StartRun(ctx context.Context, endpoints []string, trigger string) (*models.SyncRun, error) {
	args := m.Called(ctx, endpoints, trigger)
	run, _ := args.Get(0).(*models.SyncRun)
	return run, args.Error(1)
}

func TestFireStartsSchedulerRun(t *testing.T) {
	starter := new(mockStarter)
	starter.On("StartRun", mock.Anything, []string(nil), meta.SyncTriggerScheduler).
		Return(&models.SyncRun{ID: "run-1"}, nil).Once()

	s := NewSchedulerService(starter, "0 */5 * * * *")
	s.fire()

	at, err := s.LastFire()
	assert.NoError(t, err)
	assert.False(t, at.IsZero())
	starter.AssertExpectations(t)
}

func TestFireRecordsBusyError(t *testing.T) {
	busy := errors.New("已有同步运行正在执行")
	starter := new(mockStarter)
	starter.On("StartRun", mock.Anything, mock.Anything, meta.SyncTriggerScheduler).Return(nil, busy)

	s := NewSchedulerService(starter, "")
	s.fire()

	_, err := s.LastFire()
	assert.ErrorIs(t, err, busy)
}

func TestStartRegistersCron(t *testing.T) {
	s := NewSchedulerService(new(mockStarter), "0 0 3 * * *")
	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.NextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, 3, next.Hour())
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewSchedulerService(new(mockStarter), "not a cron")
	assert.Error(t, s.Start())

	disabled := NewSchedulerService(new(mockStarter), "")
	require.NoError(t, disabled.Start())
	assert.True(t, disabled.NextRun().IsZero())
	disabled.Stop()
}
