package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable           = "enable"
	fieldUpdatedAt        = "updated_at"
	fieldStatus           = "status"
	fieldRole             = "role"
	fieldViews            = "views"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
)

// Index names created by Bootstrap.
const (
	indexFeedCreatedAt = "feed-created_at-index"
	indexEmail         = "email-index"
	indexUserID        = "user_id-index"
	indexRefreshToken  = "refresh_token-index"
)
