package dto

// UploadURLReq 获取上传地址
type UploadURLReq struct {
	FileName string `form:"fileName" binding:"required" validate:"required,max=128"`
	Scene    int    `form:"scene" binding:"required" validate:"oneof=1 2"`
}

// UploadURLResp 上传与下载地址
type UploadURLResp struct {
	UploadURL   string `json:"uploadUrl"`
	DownloadURL string `json:"downloadUrl"`
}
