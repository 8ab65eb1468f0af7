// internal/writers/summary.go
package writers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"syscall"
	"text/tabwriter"

	"xga-core/products"
	"xga-core/source"

	"xga/pkg/api"
)

// IsBrokenPipe reports whether err is the write-end failure seen when the
// consumer of stdout (a pager, `head`) goes away before the summary is done.
// Such exits are clean, not failures.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe)
}

// summaryKinds fixes the listing order of the product table.
var summaryKinds = []products.Kind{
	products.KindEvents,
	products.KindImage,
	products.KindExpMap,
	products.KindRateMap,
	products.KindSpectrum,
	products.KindPSF,
}

// collect flattens the registry into wire-format records, in kind order.
func collect(s *source.Source) []api.ProductV1 {
	var out []api.ProductV1
	for _, k := range summaryKinds {
		for _, e := range s.Registry().Query(k, "", "", "") {
			out = append(out, toProductV1(e))
		}
	}
	return out
}

func toProductV1(e source.Entry) api.ProductV1 {
	v := api.ProductV1{
		ObsID:      e.Key.ObsID,
		Instrument: e.Key.Inst,
		Kind:       string(e.Key.Kind),
		StorageKey: e.Key.ExtraKey,
		Path:       e.Product.Path(),
		Usable:     e.Product.Usable(),
	}
	for _, r := range e.Product.Reasons() {
		v.Reasons = append(v.Reasons, string(r))
	}
	return v
}

func toFitRecordV1(storageKey string, rec *source.FitRecord) api.FitRecordV1 {
	v := api.FitRecordV1{
		StorageKey: storageKey,
		Model:      rec.Model,
		Stat:       rec.Stat,
		DOF:        rec.DOF,
		Instrument: rec.Inst,
	}
	if len(rec.Pars) > 0 {
		v.Pars = make(map[string][]api.ParValueV1, len(rec.Pars))
		for name, vals := range rec.Pars {
			for _, p := range vals {
				v.Pars[name] = append(v.Pars[name], api.ParValueV1{Value: p.Value, ErrLo: p.ErrLo, ErrHi: p.ErrHi})
			}
		}
	}
	for _, l := range rec.Lums {
		v.Lums = append(v.Lums, api.LuminosityV1{
			LoKeV: l.LoKeV, HiKeV: l.HiKeV,
			Value: l.Value, ErrLo: l.ErrLo, ErrHi: l.ErrHi,
		})
	}
	return v
}

// WriteSummary renders the source's products and stored fits as an aligned
// text table.
func WriteSummary(w io.Writer, s *source.Source) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "OBSID\tINST\tKIND\tKEY\tUSABLE\tPATH")
	for _, p := range collect(s) {
		key := p.StorageKey
		if key == "" {
			key = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			p.ObsID, p.Instrument, p.Kind, key, p.Usable, p.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fits := s.Fits()
	if fits.Len() == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "FIT KEY\tMODEL\tSTAT\tDOF\tINST")
	for _, key := range fits.Keys() {
		for _, model := range fits.Models(key) {
			rec, _ := fits.Get(key, model)
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.0f\t%s\n",
				key, rec.Model, rec.Stat, rec.DOF, rec.Inst)
		}
	}
	return tw.Flush()
}

// WriteJSONL streams the same summary as JSON Lines: one ProductV1 per
// product, then one FitRecordV1 per stored fit.
func WriteJSONL(w io.Writer, s *source.Source) error {
	enc := json.NewEncoder(w)
	for _, p := range collect(s) {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	fits := s.Fits()
	for _, key := range fits.Keys() {
		for _, model := range fits.Models(key) {
			rec, _ := fits.Get(key, model)
			if err := enc.Encode(toFitRecordV1(key, rec)); err != nil {
				return err
			}
		}
	}
	return nil
}
