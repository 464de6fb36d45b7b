/*
 * @module testutil/fake_servers
 * @description 模拟上游代理平台与本地库的 httptest 服务
 * @architecture 测试基础设施
 * @documentReference DESIGN.md
 * @rules 上游按 page/limit 分页并按日期窗口过滤；本地库按 id 去重保存并推导水位
 * @dependencies net/http/httptest
 * @refs client/upstream_client.go, client/hub_client.go
 */

package testutil

import (
	"agent-datahub/service/models"
	"agent-datahub/service/sync_engine"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

// UpstreamRequest 上游收到的请求
type UpstreamRequest struct {
	Path string
	Form url.Values
}

// FakeUpstream 模拟上游代理平台
type FakeUpstream struct {
	Server *httptest.Server

	mu sync.Mutex
	// Data 路径 -> 数据集
	Data map[string][]models.Row
	// DateFields 路径 -> 日期过滤参数对应的行字段
	DateFields map[string]string
	// Fail 路径 -> 返回的 HTTP 状态码
	Fail        map[string]int
	LotteryInit map[string]interface{}
	Requests    []UpstreamRequest
}

// NewFakeUpstream 创建模拟上游
func NewFakeUpstream() *FakeUpstream {
	u := &FakeUpstream{
		Data:       make(map[string][]models.Row),
		DateFields: make(map[string]string),
		Fail:       make(map[string]int),
		LotteryInit: map[string]interface{}{
			"code": 1,
			"msg":  "ok",
			"data": map[string]interface{}{
				"seriesData":  []map[string]interface{}{{"id": 1, "name": "时时彩"}},
				"lotteryData": []map[string]interface{}{{"id": 101, "name": "重庆时时彩"}},
			},
		},
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.handle))
	return u
}

// Close 关闭服务
func (u *FakeUpstream) Close() {
	u.Server.Close()
}

// Set 设置路径的数据集，dateField 为空表示不按日期过滤
func (u *FakeUpstream) Set(path string, rows []models.Row, dateField string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Data[path] = rows
	if dateField != "" {
		u.DateFields[path] = dateField
	}
}

// RequestsFor 指定路径收到的请求
func (u *FakeUpstream) RequestsFor(path string) []UpstreamRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]UpstreamRequest, 0)
	for _, r := range u.Requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (u *FakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	u.mu.Lock()
	u.Requests = append(u.Requests, UpstreamRequest{Path: r.URL.Path, Form: r.PostForm})
	status := u.Fail[r.URL.Path]
	rows := u.Data[r.URL.Path]
	dateField := u.DateFields[r.URL.Path]
	lottery := u.LotteryInit
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if status != 0 {
		http.Error(w, "upstream error", status)
		return
	}
	if strings.HasSuffix(r.URL.Path, "/rebate/lotteryInit") {
		_ = json.NewEncoder(w).Encode(lottery)
		return
	}

	if dateField != "" {
		rows = filterByWindow(rows, dateField, r.PostForm)
	}
	page := cast.ToInt(r.PostForm.Get("page"))
	limit := cast.ToInt(r.PostForm.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	from := (page - 1) * limit
	if from > len(rows) {
		from = len(rows)
	}
	to := from + limit
	if to > len(rows) {
		to = len(rows)
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":  0,
		"msg":   "",
		"count": len(rows),
		"data":  append(make([]models.Row, 0, to-from), rows[from:to]...),
	})
}

// filterByWindow 按表单中 "s|e" 形式的日期窗口过滤，只比较日期部分
func filterByWindow(rows []models.Row, field string, form url.Values) []models.Row {
	var window string
	for _, v := range form {
		if len(v) > 0 && strings.Contains(v[0], "|") {
			window = v[0]
			break
		}
	}
	if window == "" {
		return rows
	}
	parts := strings.SplitN(window, "|", 2)
	start, end := dayOf(parts[0]), dayOf(parts[1])

	out := make([]models.Row, 0)
	for _, row := range rows {
		d := dayOf(cast.ToString(row[field]))
		if d >= start && d <= end {
			out = append(out, row)
		}
	}
	return out
}

func dayOf(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

// FakeHub 模拟本地库
type FakeHub struct {
	Server *httptest.Server
	Token  string

	mu sync.Mutex
	// Rows 端点 -> id -> 行
	Rows map[string]map[string]models.Row
	// DateFields 端点 -> 推导水位使用的字段
	DateFields map[string]string
	Configs    []map[string]interface{}
	Uploads    map[string]int
	FailUpload map[string]bool
}

var hubPaths = map[string]string{
	sync_engine.HubMembersPath:         "members",
	sync_engine.HubBetOrdersPath:       "bet_order",
	sync_engine.HubBetLotteryPath:      "bet_lottery",
	sync_engine.HubDepositsPath:        "deposit_withdrawal",
	sync_engine.HubReportLotteryPath:   "report_lottery",
	sync_engine.HubReportFundsPath:     "report_funds",
	sync_engine.HubReportThirdGamePath: "report_third_game",
}

// NewFakeHub 创建模拟本地库
func NewFakeHub(token string) *FakeHub {
	h := &FakeHub{
		Token: token,
		Rows:  make(map[string]map[string]models.Row),
		DateFields: map[string]string{
			"bet_order":          "bet_time",
			"bet_lottery":        "create_time",
			"deposit_withdrawal": "create_time",
			"report_lottery":     "report_date",
			"report_funds":       "report_date",
			"report_third_game":  "report_date",
		},
		Uploads:    make(map[string]int),
		FailUpload: make(map[string]bool),
	}
	h.Server = httptest.NewServer(http.HandlerFunc(h.handle))
	return h
}

// Close 关闭服务
func (h *FakeHub) Close() {
	h.Server.Close()
}

// Count 端点已保存的行数
func (h *FakeHub) Count(endpoint string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rows[endpoint])
}

// Get 按 id 获取已保存的行
func (h *FakeHub) Get(endpoint string, id interface{}) (models.Row, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	row, ok := h.Rows[endpoint][cast.ToString(id)]
	return row, ok
}

// Seed 预置数据
func (h *FakeHub) Seed(endpoint string, rows ...models.Row) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store(endpoint, rows)
}

func (h *FakeHub) store(endpoint string, rows []models.Row) {
	if h.Rows[endpoint] == nil {
		h.Rows[endpoint] = make(map[string]models.Row)
	}
	for _, row := range rows {
		h.Rows[endpoint][cast.ToString(row["id"])] = row
	}
}

func (h *FakeHub) handle(w http.ResponseWriter, r *http.Request) {
	if h.Token != "" && r.Header.Get("Authorization") != "Bearer "+h.Token {
		http.Error(w, `{"detail":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == sync_engine.HubStatusPath:
		h.writeJSON(w, h.status())
	case r.URL.Path == sync_engine.HubConfigPath:
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		h.mu.Lock()
		h.Configs = append(h.Configs, body)
		h.mu.Unlock()
		processed := 0
		for _, k := range []string{"lottery_series", "lottery_games", "invite_list", "bank_list"} {
			if items, ok := body[k].([]interface{}); ok {
				processed += len(items)
			}
		}
		h.writeJSON(w, map[string]interface{}{"processed": processed, "endpoint": "config"})
	case strings.HasPrefix(r.URL.Path, sync_engine.HubVerifyPathPrefix):
		endpoint := strings.TrimPrefix(r.URL.Path, sync_engine.HubVerifyPathPrefix)
		var req models.VerifyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		records := make([]models.Row, 0)
		for _, id := range req.IDs {
			if _, ok := h.Get(endpoint, id); ok {
				records = append(records, models.Row{"id": id})
			}
		}
		h.writeJSON(w, map[string]interface{}{"records": records, "count": len(records), "requested": len(req.IDs)})
	default:
		endpoint, ok := hubPaths[r.URL.Path]
		if !ok {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		h.mu.Lock()
		fail := h.FailUpload[endpoint]
		h.mu.Unlock()
		if fail {
			http.Error(w, `{"detail":"db error"}`, http.StatusInternalServerError)
			return
		}
		var req models.UploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf(`{"detail":%q}`, err.Error()), http.StatusBadRequest)
			return
		}
		h.mu.Lock()
		h.store(endpoint, req.Data)
		h.Uploads[endpoint]++
		h.mu.Unlock()
		h.writeJSON(w, map[string]interface{}{"processed": len(req.Data), "endpoint": endpoint})
	}
}

func (h *FakeHub) status() models.StatusResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	resp := models.StatusResponse{Endpoints: make([]models.SyncStatus, 0)}
	for endpoint, rows := range h.Rows {
		st := models.SyncStatus{Endpoint: endpoint, LastSyncCount: int64(len(rows))}
		if field, ok := h.DateFields[endpoint]; ok {
			for _, row := range rows {
				if d := dayOf(cast.ToString(row[field])); d > st.SyncParams.LastDataDate {
					st.SyncParams.LastDataDate = d
				}
			}
		}
		resp.Endpoints = append(resp.Endpoints, st)
	}
	return resp
}

func (h *FakeHub) writeJSON(w http.ResponseWriter, v interface{}) {
	_ = json.NewEncoder(w).Encode(v)
}
