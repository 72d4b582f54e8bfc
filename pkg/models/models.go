package models

// Deviation is a service-disruption notice published on the transit authority site
type Deviation struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Link    string `json:"link"`
}

// MetroLineStatus is the reported status of a single metro line
type MetroLineStatus struct {
	Line    string `json:"line"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

// TarifaTipo classifies a fare section
type TarifaTipo string

const (
	TarifaBaja             TarifaTipo = "baja"
	TarifaValle            TarifaTipo = "valle"
	TarifaPunta            TarifaTipo = "punta"
	TarifaEstudiante       TarifaTipo = "estudiante"
	TarifaAdultoMayor      TarifaTipo = "adulto-mayor"
	TarifaAdultoMayorMetro TarifaTipo = "adulto-mayor-metro"
)

// Rango is a time range in HH:MM form
type Rango struct {
	Inicio string `json:"inicio"`
	Fin    string `json:"fin"`
}

// Horarios holds the raw schedule text and the ranges parsed from it
type Horarios struct {
	Texto  string  `json:"texto"`
	Rangos []Rango `json:"rangos"`
}

// Precios holds base prices. Optional prices are nil when not published.
type Precios struct {
	Metro     *int `json:"metro,omitempty"`
	Bus       *int `json:"bus,omitempty"`
	Metrotren *int `json:"metrotren,omitempty"`
	Total     int  `json:"total"`
}

// Combinacion is one row of a fare table
type Combinacion struct {
	Descripcion string `json:"descripcion"`
	Precio      int    `json:"precio"`
}

// Tarifa is a fare record extracted from one fare section
type Tarifa struct {
	Tipo          TarifaTipo    `json:"tipo"`
	Nombre        string        `json:"nombre"`
	Descripcion   string        `json:"descripcion"`
	Horarios      Horarios      `json:"horarios"`
	Precios       Precios       `json:"precios"`
	Combinaciones []Combinacion `json:"combinaciones"`
	Restricciones string        `json:"restricciones,omitempty"`
}

// InformacionGeneral describes the integrated fare system
type InformacionGeneral struct {
	SistemaIntegrado   bool     `json:"sistemaIntegrado"`
	PeriodoIntegracion int      `json:"periodoIntegracion"`
	MaxTransbordos     int      `json:"maxTransbordos"`
	FormasPago         []string `json:"formasPago"`
}

// TarifasData is the payload of the fares endpoint
type TarifasData struct {
	Tarifas            []Tarifa           `json:"tarifas"`
	InformacionGeneral InformacionGeneral `json:"informacionGeneral"`
}

// DefaultInformacionGeneral returns the fixed description of the integrated system
func DefaultInformacionGeneral() InformacionGeneral {
	return InformacionGeneral{
		SistemaIntegrado:   true,
		PeriodoIntegracion: 120, // minutes
		MaxTransbordos:     2,
		FormasPago:         []string{"Tarjeta bip!", "Código QR (App Red / Banco Estado)"},
	}
}

// Envelope is the uniform response shape of every endpoint
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Debug     *Debug      `json:"debug,omitempty"`
}

// Debug summarizes an extraction run
type Debug struct {
	Found     int  `json:"found"`
	Processed int  `json:"processed"`
	Dropped   int  `json:"dropped"`
	Cached    bool `json:"cached"`
}
