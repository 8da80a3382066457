package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"o2oprofit/internal/calculator"
	"o2oprofit/internal/model"
)

// ConfigResponse 计算口径响应
type ConfigResponse struct {
	Tag               string           `json:"tag"`
	Fingerprint       string           `json:"fingerprint"`
	Calculation       model.CalcConfig `json:"calculation"`
	FeeModes          []model.FeeMode  `json:"feeModes"`
	MarketingVersions []string         `json:"marketingVersions"`
}

// GetConfig 获取当前计算口径
// GET /api/config
func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.baseConfig()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.configResponse(cfg))
}

// UpdateConfig 更新并保存计算口径
// PATCH /api/config
//
// 请求体与 /calculate 的口径字段相同，未提供的字段保持不变；保存前完整校验。
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req CalcRequest
	if err := bindCalcRequest(c, &req); err != nil {
		respondError(c, err)
		return
	}
	cfg, err := h.resolveConfig(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := calculator.NewEngine(cfg); err != nil {
		respondError(c, err)
		return
	}
	if err := h.store.SaveCalcConfig(cfg); err != nil {
		respondError(c, err)
		return
	}

	zap.L().Info("calc config updated", zap.String("tag", cfg.Tag()))
	c.JSON(http.StatusOK, h.configResponse(cfg))
}

func (h *Handler) configResponse(cfg model.CalcConfig) ConfigResponse {
	versions := model.MarketingVersions()
	for v := range h.calc.MarketingSchemas {
		if _, ok := model.BuiltinMarketingSchema(v); !ok {
			versions = append(versions, v)
		}
	}
	sort.Strings(versions)

	return ConfigResponse{
		Tag:               cfg.Tag(),
		Fingerprint:       cfg.Fingerprint(),
		Calculation:       cfg,
		FeeModes:          []model.FeeMode{model.FeeModeStrict, model.FeeModeFallback, model.FeeModeNone},
		MarketingVersions: versions,
	}
}
