package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/turtacn/intelpipe/pkg/constants"
)

// Indicator is a typed atomic observable (IP, domain, hash, URL) attached to
// a threat record. Order within a record is significant: the first indicator
// drives type inference and the serialization order feeds the content hash.
type Indicator struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// IndicatorList stores the ordered indicator list as a JSON column.
type IndicatorList []Indicator

// Value implements driver.Valuer.
func (l IndicatorList) Value() (driver.Value, error) {
	if l == nil {
		l = IndicatorList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *IndicatorList) Scan(value interface{}) error {
	if value == nil {
		*l = IndicatorList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported indicator list column type %T", value)
	}
}

// StringList stores a list of strings as a JSON column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported string list column type %T", value)
	}
}

// ThreatRecord is the canonical normalized representation of one ingested
// threat-intelligence item. ContentHash uniquely identifies a record; the
// unique index on it is the authoritative dedup guard. Records are created
// once on first sighting; only LastSeen is updated afterwards.
type ThreatRecord struct {
	ID           string               `gorm:"primaryKey;size:36" json:"id"`
	Source       string               `gorm:"size:64;index" json:"source"`
	SourceID     string               `gorm:"size:255" json:"source_id"`
	SourceURL    string               `gorm:"size:1024" json:"source_url"`
	Title        string               `gorm:"size:512;not null" json:"title"`
	Description  string               `gorm:"type:text" json:"description"`
	Type         constants.ThreatType `gorm:"size:32;index" json:"type"`
	Severity     constants.Severity   `gorm:"size:16" json:"severity"`
	Indicators   IndicatorList        `gorm:"type:text" json:"indicators"`
	Tags         StringList           `gorm:"type:text" json:"tags"`
	ContentHash  string               `gorm:"size:64;uniqueIndex;not null" json:"content_hash"`
	FirstSeen    time.Time            `gorm:"index" json:"first_seen"`
	LastSeen     time.Time            `json:"last_seen"`
	DiscoveredAt time.Time            `gorm:"index" json:"discovered_at"`
	CreatedAt    time.Time            `json:"created_at"`
}

// TableName sets the table name for gorm.
func (ThreatRecord) TableName() string {
	return "threat_records"
}
