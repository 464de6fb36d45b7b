package sync_engine

import (
	"agent-datahub/service/models"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// fixedClock 2025-03-31 10:00 本地时间
func fixedClock() Clock {
	return func() time.Time { return time.Date(2025, 3, 31, 10, 0, 0, 0, time.Local) }
}

func makeRows(n int, from int) []models.Row {
	rows := make([]models.Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.Row{"id": from + i, "name": "row"})
	}
	return rows
}

// listRecorder 记录列表函数的调用参数
type listRecorder struct {
	mu    sync.Mutex
	calls []map[string]interface{}
}

func (r *listRecorder) record(params map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]interface{}, len(params))
	for k, v := range params {
		cp[k] = v
	}
	r.calls = append(r.calls, cp)
}

func (r *listRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// pagedList 按 page/limit 切分固定数据集
func pagedList(rec *listRecorder, rows []models.Row) ListFunc {
	return func(ctx context.Context, params map[string]interface{}) (*models.PageResult, error) {
		rec.record(params)
		page := cast.ToInt(params["page"])
		limit := cast.ToInt(params["limit"])
		from := (page - 1) * limit
		if from > len(rows) {
			from = len(rows)
		}
		to := from + limit
		if to > len(rows) {
			to = len(rows)
		}
		return &models.PageResult{
			Code:  0,
			Count: int64(len(rows)),
			Data:  append([]models.Row{}, rows[from:to]...),
		}, nil
	}
}

// paramList 根据参数生成单页数据
func paramList(rec *listRecorder, gen func(params map[string]interface{}) []models.Row) ListFunc {
	return func(ctx context.Context, params map[string]interface{}) (*models.PageResult, error) {
		rec.record(params)
		data := gen(params)
		return &models.PageResult{Code: 0, Count: int64(len(data)), Data: data}, nil
	}
}

func failingList(rec *listRecorder, err error) ListFunc {
	return func(ctx context.Context, params map[string]interface{}) (*models.PageResult, error) {
		rec.record(params)
		return nil, err
	}
}

var errUpstreamDown = errors.New("upstream down")

// fakeHub 内存中的本地库
type fakeHub struct {
	mu          sync.Mutex
	statuses    []models.SyncStatus
	statusErr   error
	statusCalls int
	uploads     []*models.UploadRequest
	uploadURLs  []string
	failUpload  int
	stored      map[string]bool
	verifyErr   error
	verifyCalls [][]interface{}
	configs     []map[string]interface{}
}

func newFakeHub(statuses ...models.SyncStatus) *fakeHub {
	return &fakeHub{statuses: statuses, stored: make(map[string]bool)}
}

func (h *fakeHub) FetchStatus(ctx context.Context) ([]models.SyncStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusCalls++
	if h.statusErr != nil {
		return nil, h.statusErr
	}
	return h.statuses, nil
}

func (h *fakeHub) Upload(ctx context.Context, url string, body *models.UploadRequest) (*models.UploadResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads = append(h.uploads, body)
	h.uploadURLs = append(h.uploadURLs, url)
	if h.failUpload > 0 && len(h.uploads) == h.failUpload {
		return nil, errors.New("hub unavailable")
	}
	for _, row := range body.Data {
		h.stored[idKey(row["id"])] = true
	}
	return &models.UploadResponse{Processed: int64(len(body.Data))}, nil
}

func (h *fakeHub) Verify(ctx context.Context, endpoint string, ids []interface{}) (*models.VerifyResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.verifyCalls = append(h.verifyCalls, ids)
	if h.verifyErr != nil {
		return nil, h.verifyErr
	}
	resp := &models.VerifyResponse{Records: make([]models.Row, 0)}
	for _, id := range ids {
		if h.stored[idKey(id)] {
			resp.Records = append(resp.Records, models.Row{"id": idKey(id)})
		}
	}
	return resp, nil
}

func (h *fakeHub) UploadConfig(ctx context.Context, body map[string]interface{}) (*models.UploadResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.configs = append(h.configs, body)
	return &models.UploadResponse{Processed: 3}, nil
}

// eventLog 收集进度事件
type eventLog struct {
	mu     sync.Mutex
	events []*models.ProgressEvent
}

func (l *eventLog) Emit(evt *models.ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
}

func (l *eventLog) messages(endpoint string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0)
	for _, e := range l.events {
		if e.Endpoint == endpoint {
			out = append(out, string(e.Step)+":"+e.Message)
		}
	}
	return out
}

func watermark(endpoint, date string) models.SyncStatus {
	return models.SyncStatus{Endpoint: endpoint, SyncParams: models.SyncParams{LastDataDate: date}}
}
