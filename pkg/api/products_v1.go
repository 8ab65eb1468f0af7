// pkg/api/products_v1.go
package api

// ProductV1 is the stable JSON/JSONL schema for registry products.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type ProductV1 struct {
	ObsID      string   `json:"obsid"`
	Instrument string   `json:"instrument"`
	Kind       string   `json:"kind"`
	StorageKey string   `json:"storage_key,omitempty"`
	Path       string   `json:"path"`
	Usable     bool     `json:"usable"`
	Reasons    []string `json:"reasons,omitempty"`
}

// ParValueV1 is one fitted parameter instance with asymmetric errors.
type ParValueV1 struct {
	Value float64 `json:"value"`
	ErrLo float64 `json:"err_lo,omitempty"`
	ErrHi float64 `json:"err_hi,omitempty"`
}

// LuminosityV1 is a band luminosity from a spectral fit.
type LuminosityV1 struct {
	LoKeV float64 `json:"lo_kev"`
	HiKeV float64 `json:"hi_kev"`
	Value float64 `json:"value"`
	ErrLo float64 `json:"err_lo,omitempty"`
	ErrHi float64 `json:"err_hi,omitempty"`
}

// FitRecordV1 is the stable schema for stored spectral-fit results.
type FitRecordV1 struct {
	StorageKey string                  `json:"storage_key"`
	Model      string                  `json:"model"`
	Stat       float64                 `json:"stat"`
	DOF        float64                 `json:"dof"`
	Instrument string                  `json:"instrument,omitempty"`
	Pars       map[string][]ParValueV1 `json:"pars,omitempty"`
	Lums       []LuminosityV1          `json:"lums,omitempty"`
}
