package dto

// ConversationReq 会话消息分页
type ConversationReq struct {
	BeforeID int64 `form:"before_id" binding:"omitempty,min=1"`
	Limit    int   `form:"limit" binding:"omitempty,min=1,max=200"`
}

// AttachmentResp 附件上传结果
type AttachmentResp struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}
