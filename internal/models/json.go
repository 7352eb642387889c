package models

import (
	"database/sql/driver"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// BookList is the embedded book array stored as a JSON column
type BookList []Book

// Value marshals the list through datatypes.JSON
func (l BookList) Value() (driver.Value, error) {
	if l == nil {
		l = BookList{}
	}
	data, err := json.Marshal([]Book(l))
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data).Value()
}

// Scan reads the list back through datatypes.JSON
func (l *BookList) Scan(value interface{}) error {
	var raw datatypes.JSON
	if err := raw.Scan(value); err != nil {
		return err
	}
	if len(raw) == 0 {
		*l = BookList{}
		return nil
	}
	var books []Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return err
	}
	*l = BookList(books)
	return nil
}

// GormDBDataType ensures the correct data type is used for each database driver.
// This resolves the issue where MSSQL does not support the 'json' data type.
func (BookList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
