package model

type Secuencia struct {
	Tipo   string `gorm:"column:tipo;primaryKey;type:text"`
	Ultimo int64  `gorm:"column:ultimo;not null"`
}

func (Secuencia) TableName() string {
	return "secuencias"
}
