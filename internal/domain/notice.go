package domain

import "time"

// Notice categories accepted by the API.
const (
	NoticeGeneral = "general"
	NoticeEvent   = "event"
	NoticeUpdate  = "update"
	NoticePress   = "press"
)

// Notice is a publishable announcement. Drafts (Published=false) are visible to admins only.
type Notice struct {
	NoticeID  string    `json:"id" dynamodbav:"notice_id"`
	Title     string    `json:"title" dynamodbav:"title"`
	Content   string    `json:"content" dynamodbav:"content"`
	Category  string    `json:"category" dynamodbav:"category"`
	Published bool      `json:"published" dynamodbav:"published"`
	Pinned    bool      `json:"pinned" dynamodbav:"pinned"`
	Author    string    `json:"author" dynamodbav:"author"`
	Views     int       `json:"views" dynamodbav:"views"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type CreateNoticeRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Content   string `json:"content" validate:"required"`
	Category  string `json:"category" validate:"required,oneof=general event update press"`
	Published bool   `json:"published"`
	Pinned    bool   `json:"pinned"`
	Author    string `json:"author" validate:"omitempty,max=100"`
}

type UpdateNoticeRequest struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content   *string `json:"content" validate:"omitempty,min=1"`
	Category  *string `json:"category" validate:"omitempty,oneof=general event update press"`
	Published *bool   `json:"published"`
	Pinned    *bool   `json:"pinned"`
	Author    *string `json:"author" validate:"omitempty,max=100"`
}

// NoticeListOptions controls which notices a listing returns.
type NoticeListOptions struct {
	Category      string
	IncludeDrafts bool
}
