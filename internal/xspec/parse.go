// internal/xspec/parse.go

// Package xspec parses the results tables written by the external
// spectral-fitting engine and converts them into stored fit records. The
// table schema is fixed: one RESULTS section with the model name, fit
// statistics and parameter columns, one SPEC_INFO row per input spectrum
// with dynamically named luminosity columns, and one PLOT<n> section per
// spectrum with the data/model curves.
package xspec

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"xga-core/source"
)

// LumColumn is a decomposed luminosity column name, e.g. "Lx_0.5_2.0+".
type LumColumn struct {
	LoKeV, HiKeV float64
	ErrSign      int // 0 value, +1 upper error, -1 lower error
}

// ParseLumColumn decomposes a luminosity column name by underscore
// splitting; a trailing + or - on the last segment marks an asymmetric
// error column.
func ParseLumColumn(name string) (LumColumn, bool) {
	parts := strings.Split(name, "_")
	if len(parts) != 3 || parts[0] != "Lx" {
		return LumColumn{}, false
	}
	var c LumColumn
	last := parts[2]
	switch {
	case strings.HasSuffix(last, "+"):
		c.ErrSign = +1
		last = strings.TrimSuffix(last, "+")
	case strings.HasSuffix(last, "-"):
		c.ErrSign = -1
		last = strings.TrimSuffix(last, "-")
	}
	lo, err1 := strconv.ParseFloat(parts[1], 64)
	hi, err2 := strconv.ParseFloat(last, 64)
	if err1 != nil || err2 != nil {
		return LumColumn{}, false
	}
	c.LoKeV, c.HiKeV = lo, hi
	return c, true
}

// ParColumn is a decomposed parameter column name, e.g. "kT|2-". The index
// distinguishes multiple unlinked instances of the same named parameter
// across spectra.
type ParColumn struct {
	Name    string
	Index   int
	ErrSign int
}

// ParseParColumn decomposes "<parname>|<index>[+/-]".
func ParseParColumn(name string) (ParColumn, bool) {
	i := strings.LastIndex(name, "|")
	if i <= 0 {
		return ParColumn{}, false
	}
	var c ParColumn
	c.Name = name[:i]
	idx := name[i+1:]
	switch {
	case strings.HasSuffix(idx, "+"):
		c.ErrSign = +1
		idx = strings.TrimSuffix(idx, "+")
	case strings.HasSuffix(idx, "-"):
		c.ErrSign = -1
		idx = strings.TrimSuffix(idx, "-")
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 1 {
		return ParColumn{}, false
	}
	c.Index = n
	return c, true
}

// SpecInfo is one per-spectrum row: provenance, exposure, rate and band
// luminosities.
type SpecInfo struct {
	Path      string
	Exposure  float64
	CountRate float64
	Lums      []source.Luminosity
}

// Inst extracts the instrument from the spectrum filename tokens.
func (s SpecInfo) Inst() string {
	for _, tok := range strings.Split(s.Path, "_") {
		switch tok {
		case "pn", "mos1", "mos2":
			return tok
		}
	}
	return ""
}

// PlotData is one data/model curve table.
type PlotData struct {
	X, XErr, Y, YErr, Model []float64
}

// Results is one parsed fit-output file.
type Results struct {
	Model string
	Stat  float64
	DOF   float64

	Pars    map[string][]source.ParValue
	Spectra []SpecInfo
	Plots   []PlotData
}

// section splits the input into named sections, each a header row plus data
// rows of whitespace-separated fields.
type section struct {
	name   string
	header []string
	rows   [][]string
}

func readSections(r io.Reader) ([]section, error) {
	var out []section
	var cur *section
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 1 && (fields[0] == "RESULTS" || fields[0] == "SPEC_INFO" || strings.HasPrefix(fields[0], "PLOT")) {
			out = append(out, section{name: fields[0]})
			cur = &out[len(out)-1]
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("data before any section header: %q", line)
		}
		if cur.header == nil {
			cur.header = fields
			continue
		}
		if len(fields) != len(cur.header) {
			return nil, fmt.Errorf("section %s: row has %d fields for %d columns", cur.name, len(fields), len(cur.header))
		}
		cur.rows = append(cur.rows, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Parse reads one fit-output file.
func Parse(r io.Reader) (*Results, error) {
	secs, err := readSections(r)
	if err != nil {
		return nil, err
	}
	res := &Results{Pars: map[string][]source.ParValue{}}
	for _, sec := range secs {
		switch {
		case sec.name == "RESULTS":
			if err := res.parseResults(sec); err != nil {
				return nil, err
			}
		case sec.name == "SPEC_INFO":
			if err := res.parseSpecInfo(sec); err != nil {
				return nil, err
			}
		case strings.HasPrefix(sec.name, "PLOT"):
			if err := res.parsePlot(sec); err != nil {
				return nil, err
			}
		}
	}
	if res.Model == "" {
		return nil, fmt.Errorf("fit output has no RESULTS section")
	}
	return res, nil
}

func (res *Results) parseResults(sec section) error {
	if len(sec.rows) != 1 {
		return fmt.Errorf("RESULTS section needs exactly one row, got %d", len(sec.rows))
	}
	row := sec.rows[0]

	// parameter instances are gathered per (name, index), then flattened in
	// index order so Pars[name][i] is the i-th unlinked instance
	pars := map[string]map[int]*source.ParValue{}

	for i, col := range sec.header {
		switch col {
		case "MODEL":
			res.Model = row[i]
			continue
		case "TOTAL_STAT":
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return fmt.Errorf("bad TOTAL_STAT %q", row[i])
			}
			res.Stat = v
			continue
		case "DOF":
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return fmt.Errorf("bad DOF %q", row[i])
			}
			res.DOF = v
			continue
		}
		pc, ok := ParseParColumn(col)
		if !ok {
			return fmt.Errorf("unrecognised RESULTS column %q", col)
		}
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return fmt.Errorf("bad value %q for column %q", row[i], col)
		}
		m, ok := pars[pc.Name]
		if !ok {
			m = map[int]*source.ParValue{}
			pars[pc.Name] = m
		}
		pv, ok := m[pc.Index]
		if !ok {
			pv = &source.ParValue{}
			m[pc.Index] = pv
		}
		switch pc.ErrSign {
		case 0:
			pv.Value = v
		case +1:
			pv.ErrHi = v
		case -1:
			pv.ErrLo = v
		}
	}

	for name, m := range pars {
		max := 0
		for idx := range m {
			if idx > max {
				max = idx
			}
		}
		out := make([]source.ParValue, max)
		for idx, pv := range m {
			out[idx-1] = *pv
		}
		res.Pars[name] = out
	}
	return nil
}

func (res *Results) parseSpecInfo(sec section) error {
	for _, row := range sec.rows {
		var info SpecInfo
		lums := map[LumColumn]float64{}
		for i, col := range sec.header {
			switch col {
			case "SPEC_PATH":
				info.Path = row[i]
				continue
			case "EXPOSURE":
				v, err := strconv.ParseFloat(row[i], 64)
				if err != nil {
					return fmt.Errorf("bad EXPOSURE %q", row[i])
				}
				info.Exposure = v
				continue
			case "COUNT_RATE":
				v, err := strconv.ParseFloat(row[i], 64)
				if err != nil {
					return fmt.Errorf("bad COUNT_RATE %q", row[i])
				}
				info.CountRate = v
				continue
			}
			lc, ok := ParseLumColumn(col)
			if !ok {
				return fmt.Errorf("unrecognised SPEC_INFO column %q", col)
			}
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return fmt.Errorf("bad value %q for column %q", row[i], col)
			}
			lums[lc] = v
		}
		info.Lums = assembleLums(lums)
		res.Spectra = append(res.Spectra, info)
	}
	return nil
}

// assembleLums folds value/error columns into per-band luminosities, in
// ascending band order.
func assembleLums(cols map[LumColumn]float64) []source.Luminosity {
	byBand := map[[2]float64]*source.Luminosity{}
	for c, v := range cols {
		band := [2]float64{c.LoKeV, c.HiKeV}
		l, ok := byBand[band]
		if !ok {
			l = &source.Luminosity{LoKeV: c.LoKeV, HiKeV: c.HiKeV}
			byBand[band] = l
		}
		switch c.ErrSign {
		case 0:
			l.Value = v
		case +1:
			l.ErrHi = v
		case -1:
			l.ErrLo = v
		}
	}
	out := make([]source.Luminosity, 0, len(byBand))
	for _, l := range byBand {
		out = append(out, *l)
	}
	sortLums(out)
	return out
}

func sortLums(ls []source.Luminosity) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].LoKeV != ls[j].LoKeV {
			return ls[i].LoKeV < ls[j].LoKeV
		}
		return ls[i].HiKeV < ls[j].HiKeV
	})
}

func (res *Results) parsePlot(sec section) error {
	want := []string{"X", "X_ERR", "Y", "Y_ERR", "MODEL"}
	if len(sec.header) != len(want) {
		return fmt.Errorf("section %s: expected columns %v", sec.name, want)
	}
	for i, col := range sec.header {
		if col != want[i] {
			return fmt.Errorf("section %s: column %d is %q, want %q", sec.name, i, col, want[i])
		}
	}
	var p PlotData
	for _, row := range sec.rows {
		vals := make([]float64, len(row))
		for i, f := range row {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("section %s: bad value %q", sec.name, f)
			}
			vals[i] = v
		}
		p.X = append(p.X, vals[0])
		p.XErr = append(p.XErr, vals[1])
		p.Y = append(p.Y, vals[2])
		p.YErr = append(p.YErr, vals[3])
		p.Model = append(p.Model, vals[4])
	}
	res.Plots = append(res.Plots, p)
	return nil
}

// GlobalLuminosities averages each band's luminosity over the spectrum rows
// with equal weighting, regardless of exposure or count differences. Errors
// average the same way.
func (res *Results) GlobalLuminosities() []source.Luminosity {
	type acc struct {
		sum source.Luminosity
		n   int
	}
	bands := map[[2]float64]*acc{}
	for _, s := range res.Spectra {
		for _, l := range s.Lums {
			band := [2]float64{l.LoKeV, l.HiKeV}
			a, ok := bands[band]
			if !ok {
				a = &acc{sum: source.Luminosity{LoKeV: l.LoKeV, HiKeV: l.HiKeV}}
				bands[band] = a
			}
			a.sum.Value += l.Value
			a.sum.ErrLo += l.ErrLo
			a.sum.ErrHi += l.ErrHi
			a.n++
		}
	}
	out := make([]source.Luminosity, 0, len(bands))
	for _, a := range bands {
		l := a.sum
		l.Value /= float64(a.n)
		l.ErrLo /= float64(a.n)
		l.ErrHi /= float64(a.n)
		out = append(out, l)
	}
	sortLums(out)
	return out
}

// Record converts the parsed results into a storable fit record: the global
// aggregates plus every contributing per-spectrum row. The instrument tag is
// the preferred one among the contributing spectra.
func (res *Results) Record() *source.FitRecord {
	var insts []string
	specs := make([]source.SpecRecord, 0, len(res.Spectra))
	for _, s := range res.Spectra {
		if i := s.Inst(); i != "" {
			insts = append(insts, i)
		}
		specs = append(specs, source.SpecRecord{
			Path:      s.Path,
			Inst:      s.Inst(),
			Exposure:  s.Exposure,
			CountRate: s.CountRate,
			Lums:      append([]source.Luminosity(nil), s.Lums...),
		})
	}
	return &source.FitRecord{
		Model:   res.Model,
		Stat:    res.Stat,
		DOF:     res.DOF,
		Inst:    source.PreferInstrument(insts),
		Pars:    res.Pars,
		Lums:    res.GlobalLuminosities(),
		Spectra: specs,
	}
}
