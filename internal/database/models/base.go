package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	nodeMu sync.Mutex
	idNode *snowflake.Node
)

// SetNode configures the snowflake node used for new primary keys. Each
// process writing to the same database must use a distinct node id.
func SetNode(id int64) error {
	node, err := snowflake.NewNode(id)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", id, err)
	}
	nodeMu.Lock()
	idNode = node
	nodeMu.Unlock()
	return nil
}

// NewID returns a fresh 64-bit identifier.
func NewID() int64 {
	nodeMu.Lock()
	if idNode == nil {
		idNode, _ = snowflake.NewNode(1)
	}
	node := idNode
	nodeMu.Unlock()
	return node.Generate().Int64()
}

// StringList is a set of short strings (roles, event types) stored as a
// JSON array in a text column.
type StringList []string

// Scan implements the sql.Scanner interface for reading from database
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringList: expected string, got %T", value)
	}

	if len(raw) == 0 {
		*l = nil
		return nil
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StringList: %w", err)
	}
	*l = out
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Contains reports whether s is in the list.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Base model with snowflake primary key and timestamps
type Base struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == 0 {
		b.ID = NewID()
	}
	return nil
}
