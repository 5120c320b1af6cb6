package model

// Receta keeps every clinical column as TEXT so rows written by earlier
// versions of the desk stay readable.
type Receta struct {
	ID                      string `gorm:"column:id;primaryKey;type:text"`
	Numero                  string `gorm:"column:numero;type:text;not null;unique"`
	Tipo                    string `gorm:"column:tipo;type:text;not null"`
	Fecha                   string `gorm:"column:fecha;type:text"`
	Unidad                  string `gorm:"column:unidad;type:text"`
	Servicio                string `gorm:"column:servicio;type:text"`
	Prescriptor             string `gorm:"column:prescriptor;type:text"`
	PrescriptorEspecialidad string `gorm:"column:prescriptor_especialidad;type:text"`
	Paciente                string `gorm:"column:paciente;type:text"`
	CI                      string `gorm:"column:ci;type:text"`
	HC                      string `gorm:"column:hc;type:text"`
	Edad                    string `gorm:"column:edad;type:text"`
	Meses                   string `gorm:"column:meses;type:text"`
	Sexo                    string `gorm:"column:sexo;type:text"`
	Talla                   string `gorm:"column:talla;type:text"`
	Peso                    string `gorm:"column:peso;type:text"`
	FechaNacimiento         string `gorm:"column:fecha_nacimiento;type:text"`
	CIE                     string `gorm:"column:cie;type:text"`
	CIEDesc                 string `gorm:"column:cie_desc;type:text"`
	Indicaciones            string `gorm:"column:indicaciones;type:text"`
	ActividadFisica         string `gorm:"column:actividad_fisica;type:text"`
	EstadoEnfermedad        string `gorm:"column:estado_enfermedad;type:text"`
	Alergias                string `gorm:"column:alergias;type:text"`
	AlergiasEspecificar     string `gorm:"column:alergias_especificar;type:text"`
	Payload                 string `gorm:"column:payload;type:text"`
	PDFPath                 string `gorm:"column:pdf_path;type:text"`
	CreatedAt               string `gorm:"column:created_at;type:text"`
	CreatedBy               string `gorm:"column:created_by;type:text"`
	IPAddress               string `gorm:"column:ip_address;type:text"`
	HashVerificacion        string `gorm:"column:hash_verificacion;type:text"`
	Estado                  string `gorm:"column:estado;type:text;default:'ACTIVA'"`
	Modificaciones          string `gorm:"column:modificaciones;type:text"`
}

func (Receta) TableName() string {
	return "recetas"
}
