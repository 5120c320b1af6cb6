package model

type Respaldo struct {
	ID                   string `gorm:"column:id;primaryKey;type:text"`
	FechaRespaldo        string `gorm:"column:fecha_respaldo;type:text"`
	TipoRespaldo         string `gorm:"column:tipo_respaldo;type:text"`
	ArchivoRespaldo      string `gorm:"column:archivo_respaldo;type:text"`
	Estado               string `gorm:"column:estado;type:text"`
	RegistrosRespaldados int64  `gorm:"column:registros_respaldados"`
}

func (Respaldo) TableName() string {
	return "respaldos"
}
