package domain

import "time"

// InquiryStatus is the lifecycle state of an inquiry. Any value in the enum may be
// set by an admin; there is no enforced transition order.
type InquiryStatus string

const (
	InquiryPending    InquiryStatus = "pending"
	InquiryInProgress InquiryStatus = "in_progress"
	InquiryResolved   InquiryStatus = "resolved"
	InquiryCancelled  InquiryStatus = "cancelled"
)

// InquiryStatuses lists every valid status in display order.
var InquiryStatuses = []InquiryStatus{InquiryPending, InquiryInProgress, InquiryResolved, InquiryCancelled}

// Valid reports whether s is one of the enum values.
func (s InquiryStatus) Valid() bool {
	for _, v := range InquiryStatuses {
		if s == v {
			return true
		}
	}
	return false
}

var inquiryStatusLabels = map[InquiryStatus]string{
	InquiryPending:    "대기중",
	InquiryInProgress: "처리중",
	InquiryResolved:   "완료",
	InquiryCancelled:  "취소",
}

// Label is the Korean display name of s.
func (s InquiryStatus) Label() string {
	if l, ok := inquiryStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Inquiry is a customer contact request.
// Feed is a constant partition attribute that backs the created_at ordered index.
type Inquiry struct {
	InquiryID string        `json:"id" dynamodbav:"inquiry_id"`
	Name      string        `json:"name" dynamodbav:"name"`
	Email     string        `json:"email" dynamodbav:"email"`
	Company   *string       `json:"company,omitempty" dynamodbav:"company"`
	Phone     *string       `json:"phone,omitempty" dynamodbav:"phone"`
	Subject   string        `json:"subject" dynamodbav:"subject"`
	Message   string        `json:"message" dynamodbav:"message"`
	Status    InquiryStatus `json:"status" dynamodbav:"status"`
	Feed      string        `json:"-" dynamodbav:"feed"`
	CreatedAt time.Time     `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" dynamodbav:"updated_at"`
}

// InquiryFeedKey is the value stored in Inquiry.Feed.
const InquiryFeedKey = "inquiries"

// ContactRequest is the public contact form payload.
type ContactRequest struct {
	Name    string  `json:"name" validate:"required,min=2,max=100"`
	Email   string  `json:"email" validate:"required,email"`
	Company *string `json:"company" validate:"omitempty,max=100"`
	Phone   *string `json:"phone" validate:"omitempty,max=30"`
	Subject string  `json:"subject" validate:"required,max=200"`
	Message string  `json:"message" validate:"required,min=10,max=5000"`
}

// UpdateInquiryStatusRequest is the admin PATCH payload.
type UpdateInquiryStatusRequest struct {
	Status InquiryStatus `json:"status"`
}

// InquiryFilter carries filter and pagination parameters for listing inquiries.
type InquiryFilter struct {
	// Status filters by status; empty returns every status.
	Status InquiryStatus
	Limit  int
	Offset int
}
