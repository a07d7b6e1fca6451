package controller

import (
	"net/http"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageController 消息历史与附件
type MessageController struct {
	msgSvc    *service.MessageService
	userSvc   *service.UserService
	attachSvc *service.AttachmentService
}

// NewMessageController 创建消息控制器
func NewMessageController(msgSvc *service.MessageService, userSvc *service.UserService, attachSvc *service.AttachmentService) *MessageController {
	return &MessageController{msgSvc: msgSvc, userSvc: userSvc, attachSvc: attachSvc}
}

// Conversation 与某个联系人的会话历史
// @Summary 会话历史
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param userId path int true "对方用户 ID"
// @Param before_id query int false "游标：只返回 ID 小于该值的消息"
// @Param limit query int false "数量"
// @Success 200 {object} dto.Response
// @Failure 403 {object} dto.Response
// @Router /api/messages/{userId} [get]
func (ctl *MessageController) Conversation(c *gin.Context) {
	otherID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	var req dto.ConversationReq
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ctl.userSvc.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	msgs, err := ctl.msgSvc.ListConversation(c.Request.Context(), user, otherID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, msgs)
}

// UploadAttachment 上传附件，返回 URL 供 file 消息使用
// @Summary 上传附件
// @Tags Messages
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "附件"
// @Success 200 {object} dto.Response
// @Failure 400 {object} dto.Response
// @Router /api/messages/attachments [post]
func (ctl *MessageController) UploadAttachment(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondFail(c, http.StatusBadRequest, "缺少文件", err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondFail(c, http.StatusBadRequest, "无法读取文件", err.Error())
		return
	}
	defer f.Close()

	resp, err := ctl.attachSvc.Upload(c.Request.Context(), middleware.GetUserID(c), fh.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, resp)
}
