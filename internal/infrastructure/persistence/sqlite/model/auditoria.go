package model

type Auditoria struct {
	ID           string `gorm:"column:id;primaryKey;type:text"`
	RecetaNumero string `gorm:"column:receta_numero;type:text;index:idx_auditoria_receta"`
	Accion       string `gorm:"column:accion;type:text"`
	Usuario      string `gorm:"column:usuario;type:text"`
	FechaHora    string `gorm:"column:fecha_hora;type:text"`
	IPAddress    string `gorm:"column:ip_address;type:text"`
	Detalles     string `gorm:"column:detalles;type:text"`
	HashAnterior string `gorm:"column:hash_anterior;type:text"`
	HashNuevo    string `gorm:"column:hash_nuevo;type:text"`
}

func (Auditoria) TableName() string {
	return "auditoria"
}

type BitacoraAcceso struct {
	ID        string `gorm:"column:id;primaryKey;type:text"`
	Usuario   string `gorm:"column:usuario;type:text"`
	Accion    string `gorm:"column:accion;type:text"`
	FechaHora string `gorm:"column:fecha_hora;type:text"`
	IPAddress string `gorm:"column:ip_address;type:text"`
	Detalles  string `gorm:"column:detalles;type:text"`
	Resultado string `gorm:"column:resultado;type:text"`
}

func (BitacoraAcceso) TableName() string {
	return "bitacora_accesos"
}
