package models

// BackendPagination 与管理后台前端的分页模型保持一致
type BackendPagination struct {
	Size      int    `json:"size"`
	Page      int    `json:"page"`
	Count     int    `json:"count"`
	Sort      string `json:"sort"`
	Direction int    `json:"direction"`
}
