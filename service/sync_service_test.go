/*
 * @module service/sync_service_test
 * @description 同步运行管理测试：真实客户端 + 模拟上游/本地库 + 内存 sqlite
 * @architecture 测试架构 - testify suite
 * @documentReference service/sync_service.go
 * @rules 每个用例独立的模拟服务器与数据库
 * @dependencies github.com/stretchr/testify, agent-datahub/testutil
 */

package service

import (
	"agent-datahub/client"
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"agent-datahub/service/sync_engine"
	"agent-datahub/testutil"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// recordingSink 记录事件，可选地在指定步骤执行钩子
type recordingSink struct {
	mu     sync.Mutex
	events []*models.ProgressEvent
	hook   func(evt *models.ProgressEvent)
}

func (s *recordingSink) Emit(evt *models.ProgressEvent) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(evt)
	}
}

func (s *recordingSink) steps(step meta.SyncStep) []*models.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ProgressEvent, 0)
	for _, e := range s.events {
		if e.Step == step {
			out = append(out, e)
		}
	}
	return out
}

type SyncServiceTestSuite struct {
	suite.Suite
	testDB   *testutil.TestDB
	upstream *testutil.FakeUpstream
	hub      *testutil.FakeHub
	sink     *recordingSink
}

func (s *SyncServiceTestSuite) SetupTest() {
	s.testDB = testutil.NewTestDB()
	s.upstream = testutil.NewFakeUpstream()
	s.hub = testutil.NewFakeHub("hub-token")
	s.sink = &recordingSink{}
}

func (s *SyncServiceTestSuite) TearDownTest() {
	s.upstream.Close()
	s.hub.Close()
	s.testDB.Close()
}

func (s *SyncServiceTestSuite) newService(withConfig bool) *SyncService {
	up := client.NewUpstreamClient(&client.UpstreamConfig{
		BaseURL:         s.upstream.Server.URL,
		SessionID:       "sess",
		Timeout:         5 * time.Second,
		RateLimit:       1000,
		RateBurst:       100,
		BreakerFailures: 100,
		BreakerTimeout:  time.Minute,
	}, nil)
	hub := client.NewHubClient(&client.HubConfig{
		BaseURL: s.hub.Server.URL,
		Token:   "hub-token",
		Timeout: 5 * time.Second,
	})

	opts := sync_engine.Options{
		Hub:       hub,
		Endpoints: sync_engine.DefaultEndpoints(up.Listers()),
		AgentID:   1,
	}
	if withConfig {
		opts.Config = up.ConfigSources()
	}
	return NewSyncService(s.testDB.DB, sync_engine.NewEngine(opts), s.sink, nil)
}

func (s *SyncServiceTestSuite) TestFullRunPersistsResults() {
	today := time.Now().Format(meta.DateLayout)
	s.upstream.Set(client.UpstreamMembersPath, []models.Row{
		{"id": 1, "username": "a", "password": "x"},
		{"id": 2, "username": "b", "password": "y"},
	}, "")
	s.upstream.Set(client.UpstreamBetOrderPath, []models.Row{
		{"id": 10, "bet_time": today + " 08:00:00"},
	}, "bet_time")

	svc := s.newService(true)
	run, err := svc.StartRun(context.Background(), nil, meta.SyncTriggerManual)
	s.Require().NoError(err)
	s.Equal(meta.SyncRunStatusRunning, run.Status)
	svc.Wait()

	stored, err := svc.GetRun(run.ID)
	s.Require().NoError(err)
	s.Equal(meta.SyncRunStatusSuccess, stored.Status)
	s.Equal(len(meta.SyncOrder), len(stored.Results))
	s.NotNil(stored.EndTime)
	s.Equal(0, stored.FailedCount)

	s.Equal(2, s.hub.Count(meta.EndpointMembers))
	row, ok := s.hub.Get(meta.EndpointMembers, 1)
	s.Require().True(ok)
	_, hasPassword := row["password"]
	s.False(hasPassword, "敏感字段不应上传")
	s.Equal(1, s.hub.Count(meta.EndpointBetOrder))
	s.Len(s.hub.Configs, 1)

	complete := s.sink.steps(meta.StepComplete)
	s.Require().Len(complete, 1)
	s.Equal(run.ID, complete[0].RunID)
	s.Contains(complete[0].Message, "All done in")
	s.Nil(svc.ActiveRun())
}

func (s *SyncServiceTestSuite) TestSingleEndpointRunIsolatesFailure() {
	s.upstream.Fail[client.UpstreamMembersPath] = 500

	svc := s.newService(false)
	run, err := svc.StartRun(context.Background(), []string{meta.EndpointMembers}, "")
	s.Require().NoError(err)
	svc.Wait()

	stored, err := svc.GetRun(run.ID)
	s.Require().NoError(err)
	s.Equal(meta.SyncRunStatusFailed, stored.Status)
	s.Equal(1, stored.FailedCount)
	s.Equal(meta.SyncTriggerManual, stored.TriggerType)
	s.Len(s.sink.steps(meta.StepError), 1)
}

func (s *SyncServiceTestSuite) TestPartialWhenOneEndpointFails() {
	s.hub.FailUpload[meta.EndpointMembers] = true
	s.upstream.Set(client.UpstreamMembersPath, []models.Row{{"id": 1}}, "")

	svc := s.newService(false)
	run, err := svc.StartRun(context.Background(), nil, meta.SyncTriggerScheduler)
	s.Require().NoError(err)
	svc.Wait()

	stored, _ := svc.GetRun(run.ID)
	s.Equal(meta.SyncRunStatusPartial, stored.Status)
	s.Equal(1, stored.FailedCount)
	s.Len(s.sink.steps(meta.StepDone), len(meta.SyncOrder)-2)
}

func (s *SyncServiceTestSuite) TestRejectsUnknownEndpoint() {
	svc := s.newService(false)
	_, err := svc.StartRun(context.Background(), []string{"config"}, "")
	s.True(errors.Is(err, sync_engine.ErrUnknownEndpoint), "未配置config来源时config不可用")
}

func (s *SyncServiceTestSuite) TestRejectsConcurrentRun() {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	s.sink.hook = func(evt *models.ProgressEvent) {
		if evt.Step == meta.StepStart {
			once.Do(func() {
				close(started)
				<-release
			})
		}
	}

	svc := s.newService(false)
	first, err := svc.StartRun(context.Background(), []string{meta.EndpointMembers}, "")
	s.Require().NoError(err)
	<-started

	_, err = svc.StartRun(context.Background(), nil, "")
	s.ErrorIs(err, ErrRunActive)
	active := svc.ActiveRun()
	s.Require().NotNil(active)
	s.Equal(first.ID, active.ID)

	close(release)
	svc.Wait()

	_, err = svc.StartRun(context.Background(), []string{meta.EndpointMembers}, "")
	s.NoError(err, "上一次运行结束后可以再次启动")
	svc.Wait()
}

func (s *SyncServiceTestSuite) TestAbortBetweenEndpoints() {
	var svc *SyncService
	var runID string
	ready := make(chan struct{})
	s.sink.hook = func(evt *models.ProgressEvent) {
		if evt.Step == meta.StepDone && evt.Endpoint == meta.EndpointMembers {
			<-ready
			assert.NoError(s.T(), svc.Abort(runID))
		}
	}

	svc = s.newService(false)
	run, err := svc.StartRun(context.Background(), nil, "")
	s.Require().NoError(err)
	runID = run.ID
	close(ready)
	svc.Wait()

	stored, _ := svc.GetRun(run.ID)
	s.Equal(meta.SyncRunStatusAborted, stored.Status)
	s.True(stored.Aborted)
	s.Len(stored.Results, 1, "中止后不再执行后续端点")

	complete := s.sink.steps(meta.StepComplete)
	s.Require().Len(complete, 1)
	s.Contains(complete[0].Message, "Aborted")
}

func (s *SyncServiceTestSuite) TestAbortErrors() {
	svc := s.newService(false)
	s.ErrorIs(svc.Abort("missing"), ErrRunNotFound)

	finished := testutil.NewTestDataFactory(s.testDB.DB).CreateSyncRun()
	s.ErrorIs(svc.Abort(finished.ID), ErrRunNotActive)
}

func (s *SyncServiceTestSuite) TestListRuns() {
	factory := testutil.NewTestDataFactory(s.testDB.DB)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		factory.CreateSyncRun(func(r *models.SyncRun) { r.StartTime = at })
	}

	svc := s.newService(false)
	runs, total, err := svc.ListRuns(1, 2)
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(runs, 2)
	s.True(runs[0].StartTime.After(runs[1].StartTime))

	runs, _, err = svc.ListRuns(2, 2)
	s.Require().NoError(err)
	s.Len(runs, 1)
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}

func TestGetRunNotFound(t *testing.T) {
	testDB := testutil.NewTestDB()
	defer testDB.Close()

	svc := NewSyncService(testDB.DB, sync_engine.NewEngine(sync_engine.Options{}), nil, nil)
	_, err := svc.GetRun("nope")
	require.ErrorIs(t, err, ErrRunNotFound)
}
