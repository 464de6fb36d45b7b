package sync_engine

import (
	"agent-datahub/service/models"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAllPages_StopsOnShortPage(t *testing.T) {
	rec := &listRecorder{}
	res, err := FetchAllPages(context.Background(), pagedList(rec, makeRows(120, 1)), nil, FetchOptions{PageSize: 50})
	require.NoError(t, err)

	assert.Len(t, res.Data, 120)
	assert.Equal(t, 3, rec.count())
	for i, call := range rec.calls {
		assert.Equal(t, i+1, call["page"])
		assert.Equal(t, 50, call["limit"])
	}
	assert.Equal(t, 1, res.Data[0]["id"])
	assert.Equal(t, 120, res.Data[119]["id"])
}

func TestFetchAllPages_StopsWhenCountReached(t *testing.T) {
	rec := &listRecorder{}
	res, err := FetchAllPages(context.Background(), pagedList(rec, makeRows(100, 1)), nil, FetchOptions{PageSize: 50})
	require.NoError(t, err)

	assert.Len(t, res.Data, 100)
	assert.Equal(t, 2, rec.count())
}

func TestFetchAllPages_MaxPages(t *testing.T) {
	rec := &listRecorder{}
	res, err := FetchAllPages(context.Background(), pagedList(rec, makeRows(500, 1)), nil, FetchOptions{PageSize: 50, MaxPages: 3})
	require.NoError(t, err)

	assert.Len(t, res.Data, 150)
	assert.Equal(t, 3, rec.count())
}

func TestFetchAllPages_KeepsFilters(t *testing.T) {
	rec := &listRecorder{}
	filters := map[string]interface{}{"status": 1}
	_, err := FetchAllPages(context.Background(), pagedList(rec, makeRows(10, 1)), filters, FetchOptions{})
	require.NoError(t, err)

	require.Equal(t, 1, rec.count())
	assert.Equal(t, 1, rec.calls[0]["status"])
	assert.Equal(t, DefaultPageSize, rec.calls[0]["limit"])
	assert.NotContains(t, filters, "page")
}

func TestFetchAllPages_ProtocolFailureKeepsPartialData(t *testing.T) {
	calls := 0
	listFn := func(ctx context.Context, params map[string]interface{}) (*models.PageResult, error) {
		calls++
		if calls == 1 {
			return &models.PageResult{Code: 0, Count: 200, Data: makeRows(50, 1)}, nil
		}
		return &models.PageResult{Code: 1, Msg: "登录超时"}, nil
	}

	res, err := FetchAllPages(context.Background(), listFn, nil, FetchOptions{PageSize: 50})
	require.NoError(t, err)
	assert.Len(t, res.Data, 50)
	assert.Equal(t, 2, calls)
}

func TestFetchAllPages_NonArrayDataStops(t *testing.T) {
	calls := 0
	listFn := func(ctx context.Context, params map[string]interface{}) (*models.PageResult, error) {
		calls++
		return &models.PageResult{Code: 0, Count: 10, Data: nil}, nil
	}

	res, err := FetchAllPages(context.Background(), listFn, nil, FetchOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.NotNil(t, res.Data)
	assert.Equal(t, 1, calls)
}

func TestFetchAllPages_TransportErrorPropagates(t *testing.T) {
	rec := &listRecorder{}
	_, err := FetchAllPages(context.Background(), failingList(rec, errUpstreamDown), nil, FetchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUpstreamDown))
}

func TestFetchAllPages_CapturesFirstTotalData(t *testing.T) {
	calls := 0
	listFn := func(ctx context.Context, params map[string]interface{}) (*models.PageResult, error) {
		calls++
		return &models.PageResult{
			Code:      0,
			Count:     4,
			Data:      makeRows(2, calls*10),
			TotalData: map[string]interface{}{"page": calls},
		}, nil
	}

	res, err := FetchAllPages(context.Background(), listFn, nil, FetchOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, res.Data, 4)
	assert.Equal(t, 1, res.TotalData["page"])
}

func TestFetchAllPages_TrustCountIgnoresShortPage(t *testing.T) {
	calls := 0
	listFn := func(ctx context.Context, params map[string]interface{}) (*models.PageResult, error) {
		calls++
		// 上游实际每页只返回 30 条
		return &models.PageResult{Code: 0, Count: 90, Data: makeRows(30, calls*100)}, nil
	}

	res, err := FetchAllPages(context.Background(), listFn, nil, FetchOptions{PageSize: 50, TrustCount: true})
	require.NoError(t, err)
	assert.Len(t, res.Data, 90)
	assert.Equal(t, 3, calls)
}

func TestFetchAllPages_StripsSensitiveFields(t *testing.T) {
	rows := []models.Row{
		{"id": 1, "username": "a", "password": "x", "fund_password": "y", "salt": "z"},
		{"id": 2, "username": "b", "password": "x"},
	}
	rec := &listRecorder{}
	res, err := FetchAllPages(context.Background(), pagedList(rec, rows), nil, FetchOptions{Sensitive: true})
	require.NoError(t, err)

	require.Len(t, res.Data, 2)
	for _, row := range res.Data {
		assert.NotContains(t, row, "password")
		assert.NotContains(t, row, "fund_password")
		assert.NotContains(t, row, "salt")
		assert.Contains(t, row, "username")
	}
	// 原始数据不被修改
	assert.Contains(t, rows[0], "password")
}

func TestFetchDateChunked_Windows(t *testing.T) {
	rec := &listRecorder{}
	listFn := paramList(rec, func(params map[string]interface{}) []models.Row {
		return []models.Row{{"id": params["create_time"]}}
	})

	rows, err := FetchDateChunked(context.Background(), listFn, "2025-01-01", "2025-01-20", nil, ChunkOptions{})
	require.NoError(t, err)

	require.Equal(t, 3, rec.count())
	assert.Equal(t, "2025-01-01|2025-01-07", rec.calls[0]["create_time"])
	assert.Equal(t, "2025-01-08|2025-01-14", rec.calls[1]["create_time"])
	assert.Equal(t, "2025-01-15|2025-01-20", rec.calls[2]["create_time"])
	require.Len(t, rows, 3)
	assert.Equal(t, "2025-01-01|2025-01-07", rows[0]["id"])
	assert.Equal(t, "2025-01-15|2025-01-20", rows[2]["id"])
}

func TestFetchDateChunked_DatetimeWindows(t *testing.T) {
	rec := &listRecorder{}
	listFn := paramList(rec, func(params map[string]interface{}) []models.Row { return nil })

	_, err := FetchDateChunked(context.Background(), listFn, "2025-01-01", "2025-01-20", nil, ChunkOptions{Datetime: true, DateParam: "bet_time"})
	require.NoError(t, err)

	require.Equal(t, 3, rec.count())
	assert.Equal(t, "2025-01-01 00:00:00|2025-01-07 23:59:59", rec.calls[0]["bet_time"])
	assert.Equal(t, "2025-01-08 00:00:00|2025-01-14 23:59:59", rec.calls[1]["bet_time"])
	assert.Equal(t, "2025-01-15 00:00:00|2025-01-20 23:59:59", rec.calls[2]["bet_time"])
}

func TestFetchDateChunked_SingleDay(t *testing.T) {
	rec := &listRecorder{}
	listFn := paramList(rec, func(params map[string]interface{}) []models.Row { return makeRows(1, 1) })

	rows, err := FetchDateChunked(context.Background(), listFn, "2025-01-05", "2025-01-05", nil, ChunkOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "2025-01-05|2025-01-05", rec.calls[0]["create_time"])
}

func TestFetchDateChunked_InvalidDate(t *testing.T) {
	rec := &listRecorder{}
	_, err := FetchDateChunked(context.Background(), pagedList(rec, nil), "2025/01/01", "2025-01-05", nil, ChunkOptions{})
	assert.Error(t, err)
	assert.Equal(t, 0, rec.count())
}

func TestFetchDateChunked_ErrorInWindow(t *testing.T) {
	rec := &listRecorder{}
	_, err := FetchDateChunked(context.Background(), failingList(rec, errUpstreamDown), "2025-01-01", "2025-01-20", nil, ChunkOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUpstreamDown)
	assert.Equal(t, 1, rec.count())
}

func TestFetchDateChunked_StripsSensitiveFields(t *testing.T) {
	rec := &listRecorder{}
	listFn := paramList(rec, func(params map[string]interface{}) []models.Row {
		return []models.Row{{"id": 1, "fund_password": "p"}}
	})

	rows, err := FetchDateChunked(context.Background(), listFn, "2025-01-01", "2025-01-03", nil, ChunkOptions{Sensitive: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0], "fund_password")
	assert.Equal(t, 1, rows[0]["id"])
}
