package models

// Record is a user-owned food entry. Timestamps are Unix milliseconds and
// always assigned by the server; UpdatedAt is the pull cursor basis.
type Record struct {
	ID           string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RemoteID     *string  `json:"remote_id"`
	LocalID      *string  `gorm:"index:idx_records_user_local,priority:2" json:"local_id"`
	UserID       string   `gorm:"type:varchar(64);not null;index:idx_records_user_updated,priority:1;index:idx_records_user_local,priority:1" json:"user_id"`
	Title        *string  `json:"title"`
	LocalURI     *string  `gorm:"column:local_uri" json:"local_uri"`
	RemoteURI    *string  `gorm:"column:remote_uri" json:"remote_uri"`
	Calories     *float64 `json:"calories"`
	Protein      *float64 `json:"protein"`
	Fat          *float64 `json:"fat"`
	Carbohydrate *float64 `json:"carbohydrate"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	City         *string  `json:"city"`
	District     *string  `json:"district"`
	TakenAt      *string  `json:"taken_at"`
	SyncState    *string  `json:"sync_state"`
	Deleted      bool     `gorm:"not null;default:false" json:"deleted"`
	CreatedAt    int64    `gorm:"autoCreateTime:false;not null;default:0" json:"created_at"`
	UpdatedAt    int64    `gorm:"autoUpdateTime:false;not null;default:0;index:idx_records_user_updated,priority:2" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Record) TableName() string {
	return "records"
}

// PayloadColumns are the client-controlled columns replaced on upsert. Ownership and
// server timestamps are excluded.
var PayloadColumns = []string{
	"remote_id", "local_id", "title", "local_uri", "remote_uri",
	"calories", "protein", "fat", "carbohydrate", "latitude", "longitude",
	"city", "district", "taken_at", "sync_state",
}

// PushChanges is the client change set submitted to /sync/push.
type PushChanges struct {
	Created []Record `json:"created"`
	Updated []Record `json:"updated"`
	Deleted []string `json:"deleted"`
}

// PushResult summarizes what a push applied.
type PushResult struct {
	Upserted int64 `json:"upserted"`
	Skipped  int64 `json:"skipped"`
	Deleted  int64 `json:"deleted"`
}

// PullResult is the response body of /sync/pull.
type PullResult struct {
	Data      []Record `json:"data"`
	Timestamp int64    `json:"timestamp"`
}
