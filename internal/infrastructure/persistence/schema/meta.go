package schema

// Meta is a key/value row describing the store itself, such as the schema
// version that last initialized it.
type Meta struct {
	Key       string `gorm:"column:key;primaryKey;type:text"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (Meta) TableName() string {
	return "schema_meta"
}
