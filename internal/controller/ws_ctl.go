package controller

import (
	"shopify_vendor_hub/internal/realtime"
	"shopify_vendor_hub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// WSController WebSocket 入口，认证通过 authenticate 事件完成
type WSController struct {
	manager        *realtime.Manager
	originPatterns []string
}

// NewWSController 创建 WebSocket 控制器
func NewWSController(manager *realtime.Manager, originPatterns []string) *WSController {
	return &WSController{manager: manager, originPatterns: originPatterns}
}

// Serve 升级连接并阻塞到断开
// @Summary 实时通道
// @Description 连接后发送 {"type":"authenticate","data":{"token":"..."}} 完成认证
// @Tags Realtime
// @Router /ws [get]
func (ctl *WSController) Serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: ctl.originPatterns,
	})
	if err != nil {
		logger.GetLogger().Debug("[Realtime] 升级失败", zap.Error(err))
		return // Accept 已写入错误响应
	}
	ctl.manager.Serve(c.Request.Context(), conn)
}
