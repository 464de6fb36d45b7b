/*
 * @module service/sync_engine/verifier
 * @description 抽样校验：随机抽取若干 id 到本地库核对是否存在
 * @architecture 数据校验层
 * @documentReference DESIGN.md
 * @rules 校验失败只体现在结果中，从不返回错误；id 按字符串形式比较
 * @dependencies github.com/spf13/cast
 * @refs client/hub_client.go
 */

package sync_engine

import (
	"agent-datahub/service/models"
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// DefaultVerifySampleSize 默认抽样数量
const DefaultVerifySampleSize = 5

// Verifier 本地库校验能力
type Verifier interface {
	Verify(ctx context.Context, endpoint string, ids []interface{}) (*models.VerifyResponse, error)
}

// SampleVerifier 抽样校验器
type SampleVerifier struct {
	verifier   Verifier
	sampleSize int
	metrics    *Metrics

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSampleVerifier 创建抽样校验器，rnd 为空时使用当前时间作为种子
func NewSampleVerifier(verifier Verifier, sampleSize int, rnd *rand.Rand, metrics *Metrics) *SampleVerifier {
	if sampleSize <= 0 {
		sampleSize = DefaultVerifySampleSize
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SampleVerifier{verifier: verifier, sampleSize: sampleSize, rnd: rnd, metrics: metrics}
}

// VerifyRandom 随机抽取 n 条记录到本地库校验
func (v *SampleVerifier) VerifyRandom(ctx context.Context, endpoint string, records []models.Row, n int) *models.VerifyResult {
	if len(records) == 0 {
		return &models.VerifyResult{OK: true, Checked: 0}
	}
	if n <= 0 {
		n = v.sampleSize
	}

	shuffled := make([]models.Row, len(records))
	copy(shuffled, records)
	v.mu.Lock()
	v.rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	v.mu.Unlock()
	if n > len(shuffled) {
		n = len(shuffled)
	}

	ids := make([]interface{}, 0, n)
	for _, row := range shuffled[:n] {
		if id, ok := row["id"]; ok && id != nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return &models.VerifyResult{OK: true, Checked: 0, Reason: "no IDs"}
	}

	resp, err := v.verifier.Verify(ctx, endpoint, ids)
	if err != nil {
		slog.Warn("抽样校验请求失败", "endpoint", endpoint, "error", err)
		return &models.VerifyResult{OK: false, Checked: len(ids), Error: "verify request failed: " + err.Error()}
	}

	found := make(map[string]struct{})
	if resp != nil {
		for _, rec := range resp.Records {
			if id, ok := rec["id"]; ok && id != nil {
				found[idKey(id)] = struct{}{}
			}
		}
	}

	missing := make([]interface{}, 0)
	for _, id := range ids {
		if _, ok := found[idKey(id)]; !ok {
			missing = append(missing, id)
		}
	}
	v.metrics.missing(endpoint, len(missing))

	return &models.VerifyResult{
		OK:      len(missing) == 0,
		Checked: len(ids),
		Found:   len(found),
		Missing: missing,
	}
}

// idKey id 的规范字符串形式，使 123 与 "123" 相等
func idKey(id interface{}) string {
	return cast.ToString(id)
}
