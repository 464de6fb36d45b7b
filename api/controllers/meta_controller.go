package controllers

import (
	"agent-datahub/service/meta"
	"net/http"

	"github.com/go-chi/render"
)

type MetaController struct {
}

func NewMetaController() *MetaController {
	return &MetaController{}
}

// @Summary 获取同步元数据
// @Description 获取端点顺序、同步策略、运行状态与进度步骤，供前端渲染
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=map[string]interface{}}
// @Router /meta/sync [get]
func (c *MetaController) GetSyncMeta(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取同步元数据成功", map[string]interface{}{
		"sync_order":   meta.SyncOrder,
		"strategies":   meta.SyncStrategies,
		"run_statuses": meta.SyncRunStatuses,
		"steps": []meta.SyncStep{
			meta.StepStart, meta.StepFetch, meta.StepUpload, meta.StepVerify,
			meta.StepSkip, meta.StepDone, meta.StepError, meta.StepComplete,
		},
	}))
}
