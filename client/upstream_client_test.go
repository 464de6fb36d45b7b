/*
 * @module client/upstream_client_test
 * @description 上游客户端测试：表单、会话、分页解析、字符集与熔断
 * @architecture 测试架构 - httptest 模拟上游
 * @documentReference client/upstream_client.go
 * @rules 不依赖真实上游
 * @dependencies testing, net/http/httptest, github.com/stretchr/testify
 */

package client

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/sync_engine"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func newTestUpstream(t *testing.T, handler http.HandlerFunc) (*UpstreamClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewUpstreamClient(&UpstreamConfig{
		BaseURL:         srv.URL,
		SessionID:       "sess-1",
		Timeout:         5 * time.Second,
		RateLimit:       1000,
		RateBurst:       100,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}, nil)
	return c, srv
}

func TestUpstreamClient_ListSendsFormAndSession(t *testing.T) {
	var gotPath string
	c, _ := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		if cookie, err := r.Cookie("PHPSESSID"); assert.NoError(t, err) {
			assert.Equal(t, "sess-1", cookie.Value)
		}

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "2", r.PostForm.Get("page"))
		assert.Equal(t, "50", r.PostForm.Get("limit"))
		assert.Equal(t, "2025-01-01|2025-01-07", r.PostForm.Get("bet_time"))
		_, hasEmpty := r.PostForm["username"]
		assert.False(t, hasEmpty)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"","count":"51","data":[{"id":12345678901234567,"amount":"1.50"}],"total_data":{"sum":"1.50"}}`))
	})

	res, err := c.Listers()[meta.EndpointBetOrder](context.Background(), map[string]interface{}{
		"page":     2,
		"limit":    50,
		"bet_time": "2025-01-01|2025-01-07",
		"username": "",
		"status":   nil,
	})
	require.NoError(t, err)

	assert.Equal(t, UpstreamBetOrderPath, gotPath)
	assert.True(t, res.OK())
	assert.Equal(t, int64(51), res.Count)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "12345678901234567", numberString(res.Data[0]["id"]))
	assert.Equal(t, "1.50", res.TotalData["sum"])
	assert.Equal(t, int64(1), c.Stats().SuccessCount)
}

func TestUpstreamClient_PostFormRejectsUnconvertibleParam(t *testing.T) {
	called := false
	c, _ := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.PostForm(context.Background(), UpstreamBetOrderPath, map[string]interface{}{
		"page":   1,
		"filter": struct{ A int }{A: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter")
	assert.False(t, called)
}

func numberString(v interface{}) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

func TestUpstreamClient_DrivesFetchAllPages(t *testing.T) {
	var calls int32
	c, _ := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			_, _ = w.Write([]byte(`{"code":0,"count":3,"data":[{"id":1,"password":"x"},{"id":2}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"count":3,"data":[{"id":3,"salt":"s"}]}`))
	})

	res, err := sync_engine.FetchAllPages(context.Background(), c.List(UpstreamMembersPath), nil, sync_engine.FetchOptions{PageSize: 2, Sensitive: true})
	require.NoError(t, err)
	assert.Len(t, res.Data, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	for _, row := range res.Data {
		assert.NotContains(t, row, "password")
		assert.NotContains(t, row, "salt")
	}
}

func TestUpstreamClient_DecodesGBK(t *testing.T) {
	payload, err := simplifiedchinese.GBK.NewEncoder().String(`{"code":0,"count":1,"data":[{"id":1,"bank_name":"工商银行"}]}`)
	require.NoError(t, err)

	c, _ := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=GBK")
		_, _ = w.Write([]byte(payload))
	})

	res, err := c.List(UpstreamBankListPath)(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "工商银行", res.Data[0]["bank_name"])
}

func TestUpstreamClient_HTTPErrorAndBreaker(t *testing.T) {
	var calls int32
	c, _ := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	list := c.List(UpstreamMembersPath)

	for i := 0; i < 2; i++ {
		_, err := list(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	}

	// 熔断后不再请求上游
	_, err := list(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int64(3), c.Stats().ErrorCount)
}

func TestUpstreamClient_LotteryInit(t *testing.T) {
	c, _ := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UpstreamLotteryInitPath, r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		_, _ = w.Write([]byte(`{"code":1,"msg":"ok","data":{"seriesData":[{"id":1}],"lotteryData":[{"id":10},{"id":11}]}}`))
	})

	resp, err := c.LotteryInit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Code)
	require.NotNil(t, resp.Data)
	assert.Len(t, resp.Data.SeriesData, 1)
	assert.Len(t, resp.Data.LotteryData, 2)
}

type denyQuota struct{}

func (denyQuota) Wait(ctx context.Context) error { return errors.New("quota exhausted") }

func TestUpstreamClient_QuotaError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewUpstreamClient(&UpstreamConfig{BaseURL: srv.URL}, denyQuota{})
	_, err := c.PostForm(context.Background(), UpstreamMembersPath, nil)
	require.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestParsePageResult(t *testing.T) {
	res, err := ParsePageResult([]byte(`{"code":"0","count":10,"data":{"msg":"no"}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Code)
	assert.Nil(t, res.Data)
	assert.False(t, res.OK())

	res, err = ParsePageResult([]byte(`{"code":1001,"msg":"请重新登录","data":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 1001, res.Code)
	assert.Equal(t, "请重新登录", res.Msg)
	assert.False(t, res.OK())

	res, err = ParsePageResult([]byte(`{"code":0,"count":0,"data":[]}`))
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Empty(t, res.Data)

	_, err = ParsePageResult([]byte(`<html>login</html>`))
	assert.Error(t, err)
}
