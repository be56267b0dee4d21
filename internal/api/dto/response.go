package dto

// Response 统一返回体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// CursorPageReq 游标分页请求
type CursorPageReq struct {
	Cursor   string `form:"cursor" json:"cursor"`
	PageSize int    `form:"pageSize" json:"pageSize" validate:"omitempty,min=1,max=100"`
}

// CursorPageResp 游标分页返回，Cursor 为空表示没有更多
type CursorPageResp[T any] struct {
	Cursor string `json:"cursor"`
	IsLast bool   `json:"isLast"`
	List   []T    `json:"list"`
}
